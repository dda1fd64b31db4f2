package validation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	TitleMaxLen = 100
	NameMaxLen  = 100
)

// AllowedImageExts lists the avatar upload extensions.
var AllowedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// FormErrors maps a form field name to its first validation message.
type FormErrors map[string]string

// Add records msg for field unless the field already has an error.
func (fe FormErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// AddErr records err for field when err is non-nil.
func (fe FormErrors) AddErr(field string, err error) {
	if err != nil {
		fe.Add(field, err.Error())
	}
}

// Valid reports whether no field has an error.
func (fe FormErrors) Valid() bool {
	return len(fe) == 0
}

// Error joins all messages in field order so FormErrors can be returned as an error.
func (fe FormErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return strings.Join(parts, "; ")
}

func required(fe FormErrors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		fe.Add(field, "This field is required.")
		return false
	}
	return true
}

func maxLen(fe FormErrors, field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		fe.Add(field, fmt.Sprintf("Field cannot be longer than %d characters.", n))
	}
}

// RegistrationForm is the sign-up form.
type RegistrationForm struct {
	Username        string `form:"username"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

// Normalize trims surrounding whitespace from identity fields.
func (f *RegistrationForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

func (f *RegistrationForm) Validate() FormErrors {
	fe := FormErrors{}
	if required(fe, "username", f.Username) {
		fe.AddErr("username", ValidateUsername(f.Username))
	}
	if required(fe, "email", f.Email) {
		fe.AddErr("email", ValidateEmail(f.Email))
	}
	if required(fe, "password", f.Password) {
		fe.AddErr("password", ValidatePassword(f.Password))
	}
	if required(fe, "confirm_password", f.ConfirmPassword) && f.ConfirmPassword != f.Password {
		fe.Add("confirm_password", "Passwords must match.")
	}
	return fe
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Remember bool   `form:"remember"`
}

func (f *LoginForm) Validate() FormErrors {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	fe := FormErrors{}
	if required(fe, "email", f.Email) {
		fe.AddErr("email", ValidateEmail(f.Email))
	}
	required(fe, "password", f.Password)
	return fe
}

// AccountForm updates the profile. The picture is validated separately.
type AccountForm struct {
	Username string `form:"username"`
	About    string `form:"about"`
}

func (f *AccountForm) Validate() FormErrors {
	f.Username = strings.TrimSpace(f.Username)
	fe := FormErrors{}
	if required(fe, "username", f.Username) {
		fe.AddErr("username", ValidateUsername(f.Username))
	}
	fe.AddErr("about", ValidateAbout(f.About))
	return fe
}

// ValidateImageFilename checks the extension of an uploaded picture.
func ValidateImageFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedImageExts[ext]; !ok {
		return fmt.Errorf("File does not have an approved extension: jpg, jpeg, png, webp")
	}
	return nil
}

// HistoryForm creates or updates a story.
type HistoryForm struct {
	Title string `form:"title"`
	Info  string `form:"info"`
}

func (f *HistoryForm) Validate() FormErrors {
	f.Title = strings.TrimSpace(f.Title)
	fe := FormErrors{}
	if required(fe, "title", f.Title) {
		maxLen(fe, "title", f.Title, TitleMaxLen)
	}
	required(fe, "info", f.Info)
	return fe
}

// CharacterForm creates or updates a character.
type CharacterForm struct {
	Name string `form:"name"`
	Info string `form:"info"`
}

func (f *CharacterForm) Validate() FormErrors {
	f.Name = strings.TrimSpace(f.Name)
	fe := FormErrors{}
	if required(fe, "name", f.Name) {
		maxLen(fe, "name", f.Name, NameMaxLen)
	}
	required(fe, "info", f.Info)
	return fe
}

// PostForm creates or updates a post.
type PostForm struct {
	Title   string `form:"title"`
	Content string `form:"content"`
}

func (f *PostForm) Validate() FormErrors {
	f.Title = strings.TrimSpace(f.Title)
	fe := FormErrors{}
	if required(fe, "title", f.Title) {
		maxLen(fe, "title", f.Title, TitleMaxLen)
	}
	required(fe, "content", f.Content)
	return fe
}
