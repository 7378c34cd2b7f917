package model

// AuthorizedPerson is a person allowed in front of the camera. Embedding
// holds the encoded face descriptor once it has been computed.
type AuthorizedPerson struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
	Embedding []byte `json:"-"`
}

// HasEmbedding reports whether a cached descriptor is stored.
func (p *AuthorizedPerson) HasEmbedding() bool {
	return len(p.Embedding) > 0
}
