// Package content defines the content entity and the cache-aside service
// that resolves content identifiers into full records.
package content

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"strconv"
	"strings"
)

// Content is a content record as returned by the search service
type Content struct {
	Identifier    string   `json:"identifier"`
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	PkgVersion    Version  `json:"pkgVersion,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Concepts      []string `json:"concepts,omitempty"`
	AgeGroup      []string `json:"ageGroup,omitempty"`
	MediaType     string   `json:"mediaType,omitempty"`
	ContentType   string   `json:"contentType,omitempty"`
	Language      []string `json:"language,omitempty"`
	Owner         string   `json:"owner,omitempty"`
	LastUpdatedOn string   `json:"lastUpdatedOn,omitempty"`

	// CacheHit is true only when this value was served from a fresh cache entry
	CacheHit bool `json:"-"`
}

// SetCacheHit records the provenance of this resolution
func (c *Content) SetCacheHit(hit bool) {
	if c != nil {
		c.CacheHit = hit
	}
}

var errMissingIdentifier = stderrors.New("content has no identifier")

// Validate rejects records without an identifier. A nil record is invalid.
func (c *Content) Validate() error {
	if c == nil || strings.TrimSpace(c.Identifier) == "" {
		return errMissingIdentifier
	}
	return nil
}

// Fields returns the record as a map for embedding into event payloads
func (c *Content) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"identifier": c.Identifier,
	}

	setString := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	setList := func(key string, value []string) {
		if len(value) > 0 {
			fields[key] = append([]string(nil), value...)
		}
	}

	setString("name", c.Name)
	setString("description", c.Description)
	setString("mediaType", c.MediaType)
	setString("contentType", c.ContentType)
	setString("owner", c.Owner)
	setString("lastUpdatedOn", c.LastUpdatedOn)
	setList("keywords", c.Keywords)
	setList("concepts", c.Concepts)
	setList("ageGroup", c.AgeGroup)
	setList("language", c.Language)
	if c.PkgVersion != 0 {
		fields["pkgVersion"] = int(c.PkgVersion)
	}

	return fields
}

// Version is a package version. The search service may encode it as a
// float (e.g. 3.0); the fractional part is dropped.
type Version int

func (v *Version) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s string
		if strErr := json.Unmarshal(data, &s); strErr != nil {
			return err
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return err
		}
	}

	*v = Version(math.Trunc(f))
	return nil
}
