package ingest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
)

const (
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
	SchemeFile = "file"
)

// Location is a parsed source URI. File locations keep the path in Prefix.
type Location struct {
	Scheme string
	Bucket string
	Prefix string
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Prefix
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Prefix)
}

// ParseLocation accepts s3://bucket/prefix, gs://bucket/prefix, file:///path
// or a bare local path.
func ParseLocation(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, pkgerrors.New(pkgerrors.CodeValidation, "source location is empty")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Prefix: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source location")
	}
	switch u.Scheme {
	case SchemeS3, SchemeGCS:
		if u.Host == "" {
			return Location{}, pkgerrors.New(pkgerrors.CodeValidation, "source location has no bucket: "+uri)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Prefix: strings.TrimPrefix(u.Path, "/")}, nil
	case SchemeFile:
		return Location{Scheme: SchemeFile, Prefix: u.Path}, nil
	default:
		return Location{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported source scheme "+u.Scheme)
	}
}

var (
	s3URIPattern  = regexp.MustCompile(`^s3://[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9](/[A-Za-z0-9!_.*()/\-]*)?$`)
	roleARN       = regexp.MustCompile(`^arn:aws(-[a-z]+)*:iam::[0-9]{12}:role/[A-Za-z0-9+=,.@_/\-]{1,512}$`)
	regionPattern = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9]$`)
)

func validS3URI(uri string) error {
	if !s3URIPattern.MatchString(uri) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not a plain s3 location", uri))
	}
	return nil
}

func validRoleARN(arn string) error {
	if !roleARN.MatchString(arn) {
		return pkgerrors.New(pkgerrors.CodeValidation, "iam role arn is malformed")
	}
	return nil
}

func validRegion(region string) error {
	if !regionPattern.MatchString(region) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not an aws region", region))
	}
	return nil
}
