// internal/render/markup.go
package render

import (
	"context"
	"fmt"

	"github.com/Boostport/mjml-go"
)

// MarkupConverter turns rich template markup into final HTML.
type MarkupConverter interface {
	ToHTML(ctx context.Context, markup string) (string, error)
}

// MJMLConverter compiles MJML documents.
type MJMLConverter struct {
	minify bool
}

func NewMJMLConverter(minify bool) *MJMLConverter {
	return &MJMLConverter{minify: minify}
}

func (c *MJMLConverter) ToHTML(ctx context.Context, markup string) (string, error) {
	out, err := mjml.ToHTML(ctx, markup, mjml.WithMinify(c.minify))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkup, err)
	}
	return out, nil
}
