package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// ClientAgentHeader is the request header carrying the client identity.
const ClientAgentHeader = "Client-Agent"

// ParseClientAgent extracts name and version from a Client-Agent header.
//
// Examples:
//   - version="1.2.0"                  → {"" "1.2.0"}
//   - name="shopctl", version="v2.0.1" → {"shopctl" "v2.0.1"}
//
// The version key is required; name is optional. Both must be strings.
func ParseClientAgent(header string) (ClientAgent, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ClientAgent{}, errors.New("empty Client-Agent header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return ClientAgent{}, fmt.Errorf("invalid Client-Agent header: %w", err)
	}

	version, err := stringMember(dict, "version")
	if err != nil {
		return ClientAgent{}, err
	}
	if version == "" {
		return ClientAgent{}, errors.New("version must not be empty")
	}

	var agent ClientAgent
	agent.Version = version
	if _, ok := dict.Get("name"); ok {
		if agent.Name, err = stringMember(dict, "name"); err != nil {
			return ClientAgent{}, err
		}
	}
	return agent, nil
}

// dictionary is the lookup side of an httpsfv dictionary.
type dictionary interface {
	Get(key string) (httpsfv.Member, bool)
}

func stringMember(dict dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", fmt.Errorf("%s key not found in Client-Agent header", key)
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return s, nil
}
