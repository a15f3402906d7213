package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	avatarSize     = 200
	maxInlineImage = 640
)

// defaultAvatar returns a placeholder image URL seeded by s.
func defaultAvatar(s string) string {
	return "https://picsum.photos/seed/" + url.PathEscape(s) + "/200"
}

// resolveAvatar turns registration input into an avatar value: remote URLs
// and data URIs pass through, local files are cropped into a data URI.
func resolveAvatar(input, seed string) (string, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return defaultAvatar(seed), nil
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"), strings.HasPrefix(input, "data:"):
		return input, nil
	case isFilePath(input):
		return avatarFromFile(input)
	}
	return "", fmt.Errorf("avatar %q is neither a URL nor an existing file", input)
}

func avatarFromFile(path string) (string, error) {
	path, err := expandHome(path)
	if err != nil {
		return "", err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open avatar: %w", err)
	}
	thumb := imaging.Fill(img, avatarSize, avatarSize, imaging.Center, imaging.Lanczos)
	return encodeDataURI(thumb)
}

// inlineImage decodes data and shrinks it to fit within limit×limit.
func inlineImage(data []byte, limit int) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() > limit || b.Dy() > limit {
		img = imaging.Fit(img, limit, limit, imaging.Lanczos)
	}
	return encodeDataURI(img)
}

func encodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
