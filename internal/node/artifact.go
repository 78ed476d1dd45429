package node

import "encoding/json"

// LayerDigest is a content hash, always the blake3 sum of the layer's raw
// bytes, serialized with a "blake3:" scheme prefix.
type LayerDigest string

// NewLayerDigest wraps a raw hex digest with its scheme prefix.
func NewLayerDigest(hexSum string) LayerDigest {
	return LayerDigest("blake3:" + hexSum)
}

// Layer is one content-addressed blob belonging to an Artifact.
type Layer struct {
	MediaType MediaType   `json:"mediaType"`
	Digest    LayerDigest `json:"digest"`
	Size      int64       `json:"size"`
	Platform  string      `json:"platform,omitempty"`
}

// Requires groups named version requirements by dependency kind, e.g.
// Requires["vendor"]["openssl"] = ">=3.0".
type Requires map[string]map[string]string

// Config is the artifact's manifest payload: what it provides and requires,
// plus arbitrary component-defined metadata.
type Config struct {
	ID       Id              `json:"id"`
	Provides []string        `json:"provides,omitempty"`
	Requires Requires        `json:"requires,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Artifact is a manifest (Config) plus the ordered list of content layers
// that make it up.
type Artifact struct {
	MediaType MediaType `json:"mediaType"`
	Config    Config    `json:"config"`
	Layers    []Layer   `json:"layers"`
}
