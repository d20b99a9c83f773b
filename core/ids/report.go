package ids

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// ReportEntry describes one placeholder after Finish.
type ReportEntry struct {
	Index     int    `cbor:"index" json:"index"`
	Requested string `cbor:"requested" json:"requested"`
	Final     string `cbor:"final,omitempty" json:"final,omitempty"`
	Category  string `cbor:"category" json:"category"`
	State     string `cbor:"state" json:"state"`
	Level     int    `cbor:"level" json:"level"`
	Order     int    `cbor:"order,omitempty" json:"order,omitempty"`
}

// Report lists every placeholder in allocation order. Placeholders that were
// never referenced by the output keep an empty Final.
type Report struct {
	MaxSize int           `cbor:"max_size" json:"max_size"`
	Entries []ReportEntry `cbor:"entries" json:"entries"`
}

// Report captures the arena's current resolution state.
func (a *Arena) Report() Report {
	r := Report{
		MaxSize: a.maxSize,
		Entries: make([]ReportEntry, len(a.placeholders)),
	}
	for i := range a.placeholders {
		p := &a.placeholders[i]
		e := ReportEntry{
			Index:     p.index,
			Requested: p.requested,
			Category:  p.category.String(),
			State:     p.state.String(),
			Level:     p.level,
			Order:     p.order,
		}
		if p.state == StateGenerated {
			e.Final = p.id
		}
		r.Entries[i] = e
	}
	return r
}

// Finals maps each generated placeholder's requested id to its final ids,
// in allocation order.
func (r Report) Finals() map[string][]string {
	out := make(map[string][]string)
	for _, e := range r.Entries {
		if e.State != StateGenerated.String() {
			continue
		}
		out[e.Requested] = append(out[e.Requested], e.Final)
	}
	return out
}

// MarshalBinary produces deterministic CBOR for the report, so identical
// resolutions encode to identical bytes.
func (r Report) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// Alias so the encoder does not call MarshalBinary again.
	type reportAlias Report
	data, err := encMode.Marshal(reportAlias(r))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalReport decodes a report written by MarshalBinary.
func UnmarshalReport(data []byte) (Report, error) {
	type reportAlias Report
	var r reportAlias
	if err := cbor.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return Report(r), nil
}

// Digest returns the BLAKE2b-256 hash of the canonical encoding, hex encoded.
func (r Report) Digest() (string, error) {
	data, err := r.MarshalBinary()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
