package semver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

var re = regexp.MustCompile(`^v(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)$`)

var ErrParse = errors.New("could not parse provided string into semantic version")

type Comparison int

const (
	CompareEqual Comparison = iota
	CompareOldMajor
	CompareNewMajor
	CompareOldMinor
	CompareNewMinor
	CompareOldPatch
	CompareNewPatch
)

type Version struct {
	Major int `json:"major,omitempty"`
	Minor int `json:"minor,omitempty"`
	Patch int `json:"patch,omitempty"`
}

// Parse parses a version on the form vMAJOR.MINOR.PATCH.
func Parse(s string) (Version, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	var parts [3]int
	for i, part := range m[1:] {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrParse, s, err)
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// String returns a string representation of the semver.
func (sv Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", sv.Major, sv.Minor, sv.Patch)
}

// Compare tells how the version relates to the oracle, at the most significant
// component that differs.
func (sv Version) Compare(oracle Version) Comparison {
	for _, c := range []struct {
		mine, theirs int
		older, newer Comparison
	}{
		{sv.Major, oracle.Major, CompareOldMajor, CompareNewMajor},
		{sv.Minor, oracle.Minor, CompareOldMinor, CompareNewMinor},
		{sv.Patch, oracle.Patch, CompareOldPatch, CompareNewPatch},
	} {
		switch {
		case c.mine < c.theirs:
			return c.older
		case c.mine > c.theirs:
			return c.newer
		}
	}
	return CompareEqual
}

// Compatible reports whether a client of this version can transfer through a
// rendezvous server of the provided version. Only an older major version is incompatible.
func (sv Version) Compatible(server Version) bool {
	return sv.Compare(server) != CompareOldMajor
}

// GetRendezvousVersion fetches the version of the rendezvous server at addr.
func GetRendezvousVersion(ctx context.Context, addr string) (Version, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/version", addr), nil)
	if err != nil {
		return Version{}, fmt.Errorf("creating version request: %w", err)
	}
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		return Version{}, fmt.Errorf("fetching the latest version from relay: %w", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return Version{}, fmt.Errorf("fetching the latest version from relay: unexpected status %s", r.Status)
	}
	var version Version
	if err := json.NewDecoder(r.Body).Decode(&version); err != nil {
		return Version{}, fmt.Errorf("decoding version response from relay: %w", err)
	}
	return version, nil
}
