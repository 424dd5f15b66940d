package profile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/vardo/vardo-web/internal/cryptoutil"
	"github.com/vardo/vardo-web/internal/log"
)

const (
	testBucket   = "vardo-profile"
	testPrefix   = "profiles"
	testSSMParam = "/vardo/profile/sha256"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	gets    int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	if aws.ToString(in.Bucket) != testBucket {
		return nil, errors.New("NoSuchBucket")
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey: " + aws.ToString(in.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeSSM struct {
	mu    sync.Mutex
	value string
	err   error
}

func (f *fakeSSM) set(v string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value, f.err = v, err
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(f.value)}}, nil
}

// fakeVerifier accepts a signature equal to "sig:" + sha256(message).
type fakeVerifier struct{}

func (fakeVerifier) VerifySignature(_ context.Context, message, signature []byte) error {
	if string(signature) != "sig:"+cryptoutil.SHA256Hex(message) {
		return errors.New("bad signature")
	}
	return nil
}

func signFor(data []byte) []byte { return []byte("sig:" + cryptoutil.SHA256Hex(data)) }

func newTestLoader(s3c *fakeS3, ssmc *fakeSSM, v Verifier) *Loader {
	return &Loader{
		opts: LoaderOptions{
			SSMParam: testSSMParam,
			S3Bucket: testBucket,
			S3Prefix: testPrefix,
			Verifier: v,
		},
		s3Client:  s3c,
		ssmClient: ssmc,
		logger:    log.Nop(),
	}
}

// publish stores doc in the fake bucket, signed, and returns its hash.
func publish(s3c *fakeS3, doc string) string {
	data := []byte(doc)
	hash := cryptoutil.SHA256Hex(data)
	s3c.put(testPrefix+"/"+hash+".json", data)
	s3c.put(testPrefix+"/"+hash+".json.sig", signFor(data))
	return hash
}

func docWithVersion(v string) string {
	return `{"version":"` + v + `","headline":"Web3 Developer","wallets":[{"chain":"ethereum","label":"ETH","address":"vardo.eth"}]}`
}
