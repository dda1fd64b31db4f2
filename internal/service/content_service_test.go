package service

import (
	"errors"
	"testing"

	"storyline/internal/models"
	"storyline/internal/testutil"
	"storyline/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentServices_CreateHierarchy(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))

	history, err := s.histories.CreateHistory(bg, alice, validation.HistoryForm{Title: "Space Saga", Info: "A long voyage"})
	require.NoError(t, err)

	character, err := s.characters.CreateCharacter(bg, alice, history.ID, validation.CharacterForm{Name: "Captain Zo", Info: "Pilot"})
	require.NoError(t, err)

	post, err := s.posts.CreatePost(bg, alice, history.ID, character.ID, validation.PostForm{Title: "Liftoff", Content: "We are off"})
	require.NoError(t, err)
	assert.False(t, post.DatePosted.IsZero())

	hp, err := s.histories.HistoryPage(bg, history.ID)
	require.NoError(t, err)
	require.Len(t, hp.Characters, 1)
	assert.Equal(t, "Captain Zo", hp.Characters[0].Name)
	assert.Equal(t, "alice", hp.History.Author.Username)

	cp, err := s.characters.CharacterPage(bg, history.ID, character.ID)
	require.NoError(t, err)
	require.Len(t, cp.Posts, 1)
	assert.Equal(t, "Liftoff", cp.Posts[0].Title)
}

func TestContentServices_AnonymousCannotCreate(t *testing.T) {
	s := newServices(t)

	_, err := s.histories.CreateHistory(bg, Identity{}, validation.HistoryForm{Title: "T", Info: "I"})
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestContentServices_MissingParents(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))
	h1 := testutil.CreateHistory(t, s.db, alice.UserID, "One")
	h2 := testutil.CreateHistory(t, s.db, alice.UserID, "Two")
	c1 := testutil.CreateCharacter(t, s.db, alice.UserID, h1.ID, "Zo")

	_, err := s.characters.CreateCharacter(bg, alice, 9999, validation.CharacterForm{Name: "N", Info: "I"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.posts.CreatePost(bg, alice, h1.ID, 9999, validation.PostForm{Title: "T", Content: "C"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	// The character exists but belongs to another story.
	_, err = s.posts.CreatePost(bg, alice, h2.ID, c1.ID, validation.PostForm{Title: "T", Content: "C"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.characters.GetCharacter(bg, h2.ID, c1.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestContentServices_UpdateChecksOrder(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))
	bob := IdentityOf(testutil.CreateUser(t, s.db, "bob"))
	history := testutil.CreateHistory(t, s.db, alice.UserID, "Space Saga")
	character := testutil.CreateCharacter(t, s.db, alice.UserID, history.ID, "Zo")
	post := testutil.CreatePost(t, s.db, alice.UserID, character, "Liftoff")

	invalid := validation.HistoryForm{}

	_, err := s.histories.UpdateHistory(bg, bob, 9999, invalid)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "missing beats forbidden")

	_, err = s.histories.UpdateHistory(bg, bob, history.ID, invalid)
	assert.True(t, models.HasCode(err, models.CodeForbidden), "forbidden beats validation")

	_, err = s.histories.UpdateHistory(bg, alice, history.ID, invalid)
	var fe validation.FormErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "This field is required.", fe["title"])

	updated, err := s.histories.UpdateHistory(bg, alice, history.ID, validation.HistoryForm{Title: "Space Saga II", Info: "More"})
	require.NoError(t, err)
	assert.Equal(t, "Space Saga II", updated.Title)

	_, err = s.characters.UpdateCharacter(bg, bob, history.ID, character.ID, validation.CharacterForm{Name: "X", Info: "Y"})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	_, err = s.posts.UpdatePost(bg, bob, post.ID, validation.PostForm{Title: "X", Content: "Y"})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	edited, err := s.posts.UpdatePost(bg, alice, post.ID, validation.PostForm{Title: "Touchdown", Content: "Landed"})
	require.NoError(t, err)
	assert.Equal(t, "Touchdown", edited.Title)

	reloaded, err := s.posts.GetPost(bg, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Landed", reloaded.Content)
}

func TestContentServices_DeleteRefusedWithChildren(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))
	history := testutil.CreateHistory(t, s.db, alice.UserID, "Space Saga")
	character := testutil.CreateCharacter(t, s.db, alice.UserID, history.ID, "Zo")
	post := testutil.CreatePost(t, s.db, alice.UserID, character, "Liftoff")

	err := s.histories.DeleteHistory(bg, alice, history.ID)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConflict))
	assert.Equal(t, HistoryHasCharactersMessage, err.Error())

	err = s.characters.DeleteCharacter(bg, alice, history.ID, character.ID)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConflict))
	assert.Equal(t, CharacterHasPostsMessage, err.Error())

	_, err = s.histories.GetHistory(bg, history.ID)
	assert.NoError(t, err)
	_, err = s.characters.GetCharacter(bg, history.ID, character.ID)
	assert.NoError(t, err)

	deleted, err := s.posts.DeletePost(bg, alice, post.ID)
	require.NoError(t, err)
	assert.Equal(t, character.ID, deleted.CharacterID)
	require.NoError(t, s.characters.DeleteCharacter(bg, alice, history.ID, character.ID))
	require.NoError(t, s.histories.DeleteHistory(bg, alice, history.ID))

	_, err = s.histories.GetHistory(bg, history.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestContentServices_DeleteByNonAuthor(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))
	bob := IdentityOf(testutil.CreateUser(t, s.db, "bob"))
	history := testutil.CreateHistory(t, s.db, alice.UserID, "Space Saga")
	character := testutil.CreateCharacter(t, s.db, alice.UserID, history.ID, "Zo")
	post := testutil.CreatePost(t, s.db, alice.UserID, character, "Liftoff")

	assert.True(t, models.HasCode(s.histories.DeleteHistory(bg, bob, history.ID), models.CodeForbidden))
	assert.True(t, models.HasCode(s.characters.DeleteCharacter(bg, bob, history.ID, character.ID), models.CodeForbidden))
	_, err := s.posts.DeletePost(bg, bob, post.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
	_, err = s.posts.DeletePost(bg, alice, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = s.posts.GetPost(bg, post.ID)
	assert.NoError(t, err)
}

func TestPostService_HomePagination(t *testing.T) {
	s := newServices(t)
	alice := testutil.CreateUser(t, s.db, "alice")
	history := testutil.CreateHistory(t, s.db, alice.ID, "Space Saga")
	character := testutil.CreateCharacter(t, s.db, alice.ID, history.ID, "Zo")
	for i := 0; i < PostsPerPage+5; i++ {
		testutil.CreatePost(t, s.db, alice.ID, character, "Post")
	}

	first, err := s.posts.Home(bg, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Len(t, first.Posts, PostsPerPage)
	assert.Equal(t, int64(PostsPerPage+5), first.Total)
	assert.Equal(t, 2, first.TotalPages())
	assert.False(t, first.HasPrev())
	assert.True(t, first.HasNext())

	second, err := s.posts.Home(bg, 2)
	require.NoError(t, err)
	assert.Len(t, second.Posts, 5)
	assert.True(t, second.HasPrev())
	assert.False(t, second.HasNext())
	assert.Equal(t, 1, second.PrevPage())
}

func TestPostPage_TotalPagesEmpty(t *testing.T) {
	p := &PostPage{Page: 1, PerPage: PostsPerPage}
	assert.Equal(t, 1, p.TotalPages())
	assert.False(t, p.HasNext())
}
