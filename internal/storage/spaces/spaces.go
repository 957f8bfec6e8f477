package spaces

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"path"

	"github.com/DMarby/photo-editor/internal/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Provider implements a DigitalOcean Spaces (or any S3 compatible) image storage
type Provider struct {
	spaces s3iface.S3API
	space  string
	prefix string
}

// New returns a new Provider instance storing images under prefix in the given space
func New(space, endpoint, accessKey, secretKey, prefix string, forcePathStyle bool) (*Provider, error) {
	spacesSession, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("us-east-1"), // Needs to be us-east-1 for Spaces, or it'll fail
		S3ForcePathStyle: aws.Bool(forcePathStyle),
	})
	if err != nil {
		return nil, err
	}

	spaces := s3.New(spacesSession)

	// Make sure the space exists and we have access to it
	_, err = spaces.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(space),
	})
	if err != nil {
		return nil, err
	}

	return NewWithClient(spaces, space, prefix), nil
}

// NewWithClient returns a new Provider instance using an existing S3 client
func NewWithClient(client s3iface.S3API, space, prefix string) *Provider {
	return &Provider{
		spaces: client,
		space:  space,
		prefix: prefix,
	}
}

func (p *Provider) key(name string) string {
	return path.Join(p.prefix, name)
}

// Get returns the data of the named image
func (p *Provider) Get(ctx context.Context, name string) ([]byte, error) {
	if !storage.ValidName(name) {
		return nil, storage.ErrInvalidName
	}

	object := s3.GetObjectInput{
		Bucket: aws.String(p.space),
		Key:    aws.String(p.key(name)),
	}

	output, err := p.spaces.GetObjectWithContext(ctx, &object)
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}
	defer output.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, output.Body)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Put stores data under the given name, replacing any existing image
func (p *Provider) Put(ctx context.Context, name string, data []byte) error {
	if !storage.ValidName(name) {
		return storage.ErrInvalidName
	}

	object := s3.PutObjectInput{
		Bucket: aws.String(p.space),
		Key:    aws.String(p.key(name)),
		Body:   bytes.NewReader(data),
	}

	if contentType := mime.TypeByExtension(path.Ext(name)); contentType != "" {
		object.ContentType = aws.String(contentType)
	}

	_, err := p.spaces.PutObjectWithContext(ctx, &object)
	return err
}
