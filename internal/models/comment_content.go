package models

import (
	"encoding/json"
	"fmt"
)

// Comment content discriminator values.
const (
	CommentContentText    = "text"
	CommentContentSticker = "sticker"
	CommentContentImage   = "image"
)

// CommentContent is the polymorphic payload of a comment message. Exactly one
// variant is populated, selected by Type: markdown text, a sticker asset
// reference, or an image asset reference.
type CommentContent struct {
	Type      string `json:"type"`
	Markdown  string `json:"markdown,omitempty"`
	AssetHash string `json:"asset_hash,omitempty"`
}

type commentContentWire struct {
	Type      string `json:"type"`
	Markdown  string `json:"markdown,omitempty"`
	AssetHash string `json:"asset_hash,omitempty"`
}

// MarshalJSON encodes the populated variant, rejecting inconsistent payloads
// so malformed content can never be persisted.
func (c CommentContent) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(commentContentWire(c))
}

// UnmarshalJSON decodes a comment payload, failing on an unknown or missing
// discriminator.
func (c *CommentContent) UnmarshalJSON(data []byte) error {
	var wire commentContentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	decoded := CommentContent(wire)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Validate checks that the discriminator is known and the matching field is
// set while the others are empty.
func (c CommentContent) Validate() error {
	switch c.Type {
	case CommentContentText:
		if c.Markdown == "" {
			return fmt.Errorf("comment content: text variant requires markdown")
		}
		if c.AssetHash != "" {
			return fmt.Errorf("comment content: text variant must not carry an asset hash")
		}
	case CommentContentSticker, CommentContentImage:
		if c.AssetHash == "" {
			return fmt.Errorf("comment content: %s variant requires an asset hash", c.Type)
		}
		if c.Markdown != "" {
			return fmt.Errorf("comment content: %s variant must not carry markdown", c.Type)
		}
	case "":
		return fmt.Errorf("comment content: missing type")
	default:
		return fmt.Errorf("comment content: unknown type %q", c.Type)
	}
	return nil
}
