// Package credentials obtains Google service account credentials for the
// exporters that talk to Google APIs.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/compute/metadata"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/oauth2/google"
)

var (
	ErrMissing = errors.New("credentials: missing")
	ErrInvalid = errors.New("credentials: invalid")
)

// Source produces credentials on demand. Exporters call it only when they
// actually need to authenticate, so a missing key doesn't stop an analysis run.
type Source func(ctx context.Context) (*google.Credentials, error)

// FromFile returns a Source that reads a JSON service account key from path.
// A leading ~ is expanded to the user's home directory.
func FromFile(path string, scopes ...string) Source {
	return func(ctx context.Context) (*google.Credentials, error) {
		if path == "" {
			return nil, fmt.Errorf("%w: no key file given", ErrMissing)
		}

		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}

		b, err := os.ReadFile(expanded)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: key file %s not found", ErrMissing, expanded)
		} else if err != nil {
			return nil, err
		}

		return fromJSON(ctx, b, scopes)
	}
}

// FromSecretsManager returns a Source that fetches a JSON service account key
// stored as a secret string in AWS Secrets Manager.
func FromSecretsManager(region, secretName string, scopes ...string) Source {
	return func(ctx context.Context) (*google.Credentials, error) {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("%w: loading AWS config: %v", ErrMissing, err)
		}
		client := secretsmanager.NewFromConfig(cfg)

		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId:     aws.String(secretName),
			VersionStage: aws.String("AWSCURRENT"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: secret %q: %v", ErrMissing, secretName, err)
		}
		if result.SecretString == nil {
			return nil, fmt.Errorf("%w: secret %q has no string value", ErrInvalid, secretName)
		}

		return fromJSON(ctx, []byte(*result.SecretString), scopes)
	}
}

// Default returns a Source that uses the ambient credentials of a Compute
// Engine or Cloud Run instance. Elsewhere it reports ErrMissing.
func Default(scopes ...string) Source {
	return func(ctx context.Context) (*google.Credentials, error) {
		if !metadata.OnGCE() {
			return nil, fmt.Errorf("%w: not on GCE and no key given", ErrMissing)
		}
		return google.FindDefaultCredentials(ctx, scopes...)
	}
}

// First returns a Source that tries each source in turn and returns the first
// credentials found. Sources that report ErrMissing are skipped; any other
// error is returned immediately.
func First(sources ...Source) Source {
	return func(ctx context.Context) (*google.Credentials, error) {
		errs := []error{}
		for _, s := range sources {
			creds, err := s(ctx)
			if err == nil {
				return creds, nil
			}
			if !errors.Is(err, ErrMissing) {
				return nil, err
			}
			errs = append(errs, err)
		}

		if len(errs) == 0 {
			return nil, fmt.Errorf("%w: no sources configured", ErrMissing)
		}
		return nil, errors.Join(errs...)
	}
}

func fromJSON(ctx context.Context, b []byte, scopes []string) (*google.Credentials, error) {
	creds, err := google.CredentialsFromJSON(ctx, b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return creds, nil
}

// ServiceAccountEmail returns the client email of a service account key, or
// the empty string if the credentials carry no key JSON.
func ServiceAccountEmail(creds *google.Credentials) string {
	if creds == nil || len(creds.JSON) == 0 {
		return ""
	}

	var key struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(creds.JSON, &key); err != nil {
		return ""
	}
	return key.ClientEmail
}
