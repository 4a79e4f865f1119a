package scryfall

import (
	"strings"

	"github.com/five82/arenaview/internal/card"
)

// Card mirrors the subset of a Scryfall card object the pipeline reads.
type Card struct {
	Object    string     `json:"object"`
	ID        string     `json:"id"`
	OracleID  string     `json:"oracle_id"`
	Name      string     `json:"name"`
	Set       string     `json:"set"`
	ArenaID   int        `json:"arena_id"`
	ImageURIs *ImageURIs `json:"image_uris"`
	CardFaces []CardFace `json:"card_faces"`
}

// ImageURIs lists the rendered image sizes.
type ImageURIs struct {
	Small   string `json:"small"`
	Normal  string `json:"normal"`
	Large   string `json:"large"`
	PNG     string `json:"png"`
	ArtCrop string `json:"art_crop"`
}

// CardFace is one face of a multi-faced card.
type CardFace struct {
	Name      string     `json:"name"`
	OracleID  string     `json:"oracle_id"`
	ImageURIs *ImageURIs `json:"image_uris"`
}

// List is a paginated Scryfall list response.
type List struct {
	Object   string `json:"object"`
	Data     []Card `json:"data"`
	HasMore  bool   `json:"has_more"`
	NextPage string `json:"next_page"`
}

// ImageURI returns the normal-size image, falling back to the first face.
func (c Card) ImageURI() string {
	if c.ImageURIs != nil && c.ImageURIs.Normal != "" {
		return c.ImageURIs.Normal
	}
	if len(c.CardFaces) > 0 && c.CardFaces[0].ImageURIs != nil {
		return c.CardFaces[0].ImageURIs.Normal
	}
	return ""
}

// Oracle returns the card's oracle id. Reversible cards only carry it on
// their faces.
func (c Card) Oracle() string {
	if c.OracleID != "" {
		return c.OracleID
	}
	for _, face := range c.CardFaces {
		if face.OracleID != "" {
			return face.OracleID
		}
	}
	return ""
}

// Metadata normalizes the card into the pipeline's record.
func (c Card) Metadata() card.Metadata {
	return card.Metadata{
		Name:       strings.TrimSpace(c.Name),
		ScryfallID: c.ID,
		OracleID:   c.Oracle(),
		ImageURI:   c.ImageURI(),
	}
}
