package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/validation"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// AvatarSize is the edge length in pixels of a stored profile picture.
	AvatarSize              = 125
	DefaultAvatarMaxSizeMB  = 4
	avatarJPEGQuality       = 90
	avatarWebPQuality       = 80
	avatarNameBytes         = 8
	profilePicsSubdirectory = "profile_pics"
)

// AvatarUpload is a picture submitted with the account form.
type AvatarUpload struct {
	Filename string
	Content  []byte
}

// AvatarService normalises profile pictures and stores them under the static directory.
type AvatarService struct {
	dir          string
	maxSizeBytes int64
}

// NewAvatarService stores pictures in <staticDir>/profile_pics.
func NewAvatarService(staticDir string, maxSizeMB int) *AvatarService {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultAvatarMaxSizeMB
	}
	return &AvatarService{
		dir:          filepath.Join(staticDir, profilePicsSubdirectory),
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Dir returns the directory holding the stored pictures.
func (s *AvatarService) Dir() string {
	return s.dir
}

// Save crops the upload to a centred square, scales it to AvatarSize and
// writes it in its original format under a random name. It returns the
// stored file name.
func (s *AvatarService) Save(ctx context.Context, up AvatarUpload) (name string, err error) {
	_, span := observability.StartServiceSpan(ctx, "AvatarService", "Save")
	defer func() { span.End(err) }()

	if err := validation.ValidateImageFilename(up.Filename); err != nil {
		return "", models.NewFieldError("picture", err.Error())
	}
	if len(up.Content) == 0 {
		return "", models.NewFieldError("picture", "No file uploaded")
	}
	if int64(len(up.Content)) > s.maxSizeBytes {
		return "", models.NewFieldError("picture", fmt.Sprintf("File too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}

	decoded, format, err := image.Decode(bytes.NewReader(up.Content))
	if err != nil {
		return "", models.NewFieldError("picture", "Invalid image file")
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !formatMatchesExt(format, ext) {
		return "", models.NewFieldError("picture", "Image content does not match its extension")
	}

	thumb := squareThumbnail(decoded, AvatarSize)
	encoded, err := encodeAs(thumb, ext)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name, err = randomFileName(ext)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(filepath.Join(s.dir, name), encoded); err != nil {
		return "", models.NewInternalError(err)
	}

	observability.AvatarUploads.WithLabelValues(format).Inc()
	return name, nil
}

// Remove deletes a stored picture. The shared default picture is never removed.
func (s *AvatarService) Remove(name string) error {
	if name == "" || name == models.DefaultImageFile {
		return nil
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid avatar name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func formatMatchesExt(format, ext string) bool {
	switch ext {
	case ".jpg", ".jpeg":
		return format == "jpeg"
	case ".png":
		return format == "png"
	case ".webp":
		return format == "webp"
	}
	return false
}

// squareThumbnail centre-crops src to a square and scales it to size x size.
func squareThumbnail(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	cropped := cropToRect(src, x, y, side, side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)
	return dst
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func encodeAs(img image.Image, ext string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch ext {
	case ".png":
		err = png.Encode(buf, img)
	case ".webp":
		err = webp.Encode(buf, img, &webp.Options{Quality: avatarWebPQuality})
	default:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: avatarJPEGQuality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func randomFileName(ext string) (string, error) {
	b := make([]byte, avatarNameBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + ext, nil
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
