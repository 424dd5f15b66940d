package profile

import (
	"context"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/vardo/vardo-web/internal/cryptoutil"
	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/xerrors"
)

// MaxDocumentSize caps profile and signature downloads.
const MaxDocumentSize = 256 << 10

// S3API is the subset of the S3 client the loader uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SSMAPI is the subset of the SSM client the loader uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Verifier checks a detached signature over a profile document.
// *cryptoutil.KMSVerifier satisfies it.
type Verifier interface {
	VerifySignature(ctx context.Context, message, signature []byte) error
}

type LoaderOptions struct {
	Logger log.Logger

	// SSM parameter holding the sha256 of the current profile document.
	SSMParam string

	// Documents live at s3://{S3Bucket}/{S3Prefix}/{hash}.json with the
	// signature beside them at {hash}.json.sig.
	S3Bucket string
	S3Prefix string

	// Verifier is optional. When set, unsigned or badly signed documents
	// are rejected.
	Verifier Verifier

	// AWSConfig is used to build clients that are not injected.
	AWSConfig *aws.Config
	S3Client  S3API
	SSMClient SSMAPI
}

type Loader struct {
	opts      LoaderOptions
	s3Client  S3API
	ssmClient SSMAPI
	logger    log.Logger
}

func NewLoader(ctx context.Context, opts LoaderOptions) (*Loader, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	s3c, ssmc := opts.S3Client, opts.SSMClient
	if s3c == nil || ssmc == nil {
		var awsCfg aws.Config
		if opts.AWSConfig != nil {
			awsCfg = *opts.AWSConfig
		} else {
			var err error
			awsCfg, err = config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, xerrors.Wrap(err, "load AWS config")
			}
		}
		if s3c == nil {
			s3c = s3.NewFromConfig(awsCfg)
		}
		if ssmc == nil {
			ssmc = ssm.NewFromConfig(awsCfg)
		}
	}

	return &Loader{
		opts:      opts,
		s3Client:  s3c,
		ssmClient: ssmc,
		logger:    opts.Logger,
	}, nil
}

// FetchCurrentHash reads the published document hash from SSM.
func (l *Loader) FetchCurrentHash(ctx context.Context) (string, error) {
	out, err := l.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}
	hash := strings.ToLower(strings.TrimSpace(*out.Parameter.Value))
	if !cryptoutil.IsSHA256Hex(hash) {
		return "", xerrors.Newf("SSM parameter %s is not a sha256 hex digest", l.opts.SSMParam)
	}
	return hash, nil
}

func (l *Loader) s3Key(hash string) string {
	return path.Join(l.opts.S3Prefix, hash+".json")
}

func (l *Loader) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := l.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get S3 object s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, xerrors.Wrapf(err, "read S3 object %s", key)
	}
	if len(data) > MaxDocumentSize {
		return nil, xerrors.Newf("S3 object %s exceeds %d bytes", key, MaxDocumentSize)
	}
	return data, nil
}

// Load fetches, verifies and decodes the document addressed by hash.
func (l *Loader) Load(ctx context.Context, hash string) (*Snapshot, error) {
	key := l.s3Key(hash)
	l.logger.Info(ctx, "downloading profile document",
		"bucket", l.opts.S3Bucket,
		"key", key,
	)

	data, err := l.getObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if actual := cryptoutil.SHA256Hex(data); !cryptoutil.HashEqual(actual, hash) {
		return nil, xerrors.Newf("checksum mismatch: expected %s, got %s", hash, actual)
	}

	signed := false
	if l.opts.Verifier != nil {
		sig, err := l.getObject(ctx, key+".sig")
		if err != nil {
			return nil, xerrors.Wrap(err, "fetch profile signature")
		}
		if err := l.opts.Verifier.VerifySignature(ctx, data, sig); err != nil {
			return nil, xerrors.Wrap(err, "verify profile signature")
		}
		signed = true
	}

	p, err := Decode(data)
	if err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "loaded profile document",
		"hash", hash,
		"version", p.Version,
		"signed", signed,
	)

	return &Snapshot{
		Profile: p,
		Meta: Meta{
			Version:  p.Version,
			SHA256:   hash,
			Source:   SourceS3,
			LoadedAt: time.Now().UTC(),
			Signed:   signed,
		},
	}, nil
}

// LoadCurrent loads the document currently published in SSM.
func (l *Loader) LoadCurrent(ctx context.Context) (*Snapshot, error) {
	hash, err := l.FetchCurrentHash(ctx)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, hash)
}

func (l *Loader) LoadIntoManager(ctx context.Context, mgr *Manager) error {
	snap, err := l.LoadCurrent(ctx)
	if err != nil {
		return err
	}
	mgr.Set(*snap)
	return nil
}

// LoadFile reads a local profile document. Local files are never signed.
func LoadFile(name string) (*Snapshot, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open profile %s", name)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
	if err != nil {
		return nil, xerrors.Wrapf(err, "read profile %s", name)
	}
	if len(data) > MaxDocumentSize {
		return nil, xerrors.Newf("profile %s exceeds %d bytes", name, MaxDocumentSize)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, xerrors.Wrapf(err, "profile %s", name)
	}
	return &Snapshot{
		Profile: p,
		Meta: Meta{
			Version:  p.Version,
			SHA256:   cryptoutil.SHA256Hex(data),
			Source:   SourceFile,
			LoadedAt: time.Now().UTC(),
		},
	}, nil
}

// DefaultSnapshot wraps Default for seeding a Manager.
func DefaultSnapshot() Snapshot {
	p := Default()
	return Snapshot{
		Profile: p,
		Meta: Meta{
			Version: p.Version,
			Source:  SourceDefault,
		},
	}
}
