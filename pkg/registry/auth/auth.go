// Package auth handles authentication against container registries. It
// issues the challenge request, interprets basic and bearer challenges,
// and fetches bearer tokens scoped to pulling a single repository.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/registry/helpers"
)

// ChallengeHeader is the HTTP header containing challenge instructions.
const ChallengeHeader = "WWW-Authenticate"

// Client is the HTTP client used for registry auth requests. It is
// exposed at the package level to allow customization in tests.
var Client = &http.Client{}

// Errors for registry authentication failures.
var (
	// errNoCredentials indicates a basic challenge with no credentials available.
	errNoCredentials = errors.New("no credentials available")
	// errUnsupportedChallenge indicates an unknown challenge type from the registry.
	errUnsupportedChallenge = errors.New("unsupported challenge type from registry")
	// errInvalidChallengeHeader indicates a challenge header missing realm or service.
	errInvalidChallengeHeader = errors.New(
		"challenge header did not include all values needed to construct an auth url",
	)
)

// tokenResponse deserializes the token endpoint's JSON body.
type tokenResponse struct {
	Token string `json:"token"`
}

// GetToken fetches an authorization header value for the registry hosting
// the given image. An empty registryAuth is acceptable for anonymous
// bearer flows; basic challenges require credentials.
//
// Parameters:
//   - ctx: Context bounding the challenge and token requests.
//   - imageName: Image reference whose registry is challenged.
//   - registryAuth: Base64-encoded "username:password", may be empty.
//
// Returns:
//   - string: Full Authorization header value ("Basic ..." or "Bearer ...").
//   - error: Non-nil if the challenge cannot be satisfied.
func GetToken(ctx context.Context, imageName, registryAuth string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageName)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	challengeURL := GetChallengeURL(normalizedRef)
	logrus.WithField("url", challengeURL.String()).Debug("Built challenge URL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, challengeURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create challenge request: %w", err)
	}

	req.Header.Set("Accept", "*/*")

	res, err := Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("challenge request failed: %w", err)
	}
	defer res.Body.Close()

	challengeValue := res.Header.Get(ChallengeHeader)
	logrus.WithFields(logrus.Fields{
		"status": res.Status,
		"header": challengeValue,
	}).Debug("Got response to challenge request")

	challenge := strings.ToLower(challengeValue)

	switch {
	case challenge == "":
		// Registry does not require authentication.
		return "", nil
	case strings.HasPrefix(challenge, "basic"):
		if registryAuth == "" {
			return "", errNoCredentials
		}

		return "Basic " + registryAuth, nil
	case strings.HasPrefix(challenge, "bearer"):
		return GetBearerHeader(ctx, challenge, normalizedRef, registryAuth)
	default:
		return "", errUnsupportedChallenge
	}
}

// GetBearerHeader fetches a bearer token from the registry's token
// endpoint based on the challenge instructions, using the provided
// credentials when available.
func GetBearerHeader(
	ctx context.Context,
	challenge string,
	imageRef reference.Named,
	registryAuth string,
) (string, error) {
	authURL, err := GetAuthURL(challenge, imageRef)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	if registryAuth != "" {
		logrus.Debug("Credentials found")
		req.Header.Add("Authorization", "Basic "+registryAuth)
	} else {
		logrus.Debug("No credentials found")
	}

	res, err := Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	token := &tokenResponse{}

	if err := json.Unmarshal(body, token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	return "Bearer " + token.Token, nil
}

// GetAuthURL constructs the token endpoint URL from the challenge
// instructions, adding service and repository-pull scope parameters.
func GetAuthURL(challenge string, imageRef reference.Named) (*url.URL, error) {
	raw := strings.TrimPrefix(strings.ToLower(challenge), "bearer")

	pairs := strings.Split(raw, ",")
	values := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		trimmed := strings.Trim(pair, " ")
		if key, val, ok := strings.Cut(trimmed, "="); ok {
			values[key] = strings.Trim(val, `"`)
		}
	}

	logrus.WithFields(logrus.Fields{
		"realm":   values["realm"],
		"service": values["service"],
	}).Debug("Checking challenge header content")

	if values["realm"] == "" || values["service"] == "" {
		return nil, errInvalidChallengeHeader
	}

	authURL, err := url.Parse(values["realm"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse challenge realm: %w", err)
	}

	q := authURL.Query()
	q.Add("service", values["service"])

	scope := fmt.Sprintf("repository:%s:pull", reference.Path(imageRef))
	logrus.WithFields(logrus.Fields{
		"scope": scope,
		"image": imageRef.Name(),
	}).Debug("Setting scope for auth token")
	q.Add("scope", scope)

	authURL.RawQuery = q.Encode()

	return authURL, nil
}

// GetChallengeURL generates the challenge URL for the registry hosting
// the given image.
func GetChallengeURL(imageRef reference.Named) url.URL {
	host, _ := helpers.GetRegistryAddress(imageRef.Name())

	return url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/v2/",
	}
}
