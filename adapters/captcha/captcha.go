package captcha

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/dchest/captcha"

	"github.com/layer-3/jwtgate/core"
)

const (
	DefaultLength = 6
	DefaultWidth  = 240
	DefaultHeight = 80
)

// Generator renders digit captchas as PNG data URIs
type Generator struct {
	length int
	width  int
	height int
}

// NewGenerator creates a generator with the default dimensions
func NewGenerator() *Generator {
	return &Generator{
		length: DefaultLength,
		width:  DefaultWidth,
		height: DefaultHeight,
	}
}

// Generate returns a fresh puzzle
func (g *Generator) Generate() (core.Puzzle, error) {
	digits := captcha.RandomDigits(g.length)

	var buf bytes.Buffer
	if _, err := captcha.NewImage("", digits, g.width, g.height).WriteTo(&buf); err != nil {
		return core.Puzzle{}, fmt.Errorf("failed to render captcha: %w", err)
	}

	answer := make([]byte, len(digits))
	for i, d := range digits {
		answer[i] = '0' + d
	}

	return core.Puzzle{
		Image:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Answer: string(answer),
	}, nil
}
