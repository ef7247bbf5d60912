package lib

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
)

// AWSS3Key transforms an entity id into an S3 key (prefixing 2 short folder to it for proper sharding)
func AWSS3Key(key string) string {
	return fmt.Sprintf("%s/%s/%s", key[len(key)-4:len(key)-2], key[len(key)-2:], key)
}

// AWSS3URL returns the url for a given entity id
func AWSS3URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", Env("S3_URL", "s3.us-east-1.amazonaws.com"), Env("S3_BUCKET", ""), AWSS3Key(key))
}

// Storage represents an instance of a storage service
type Storage struct {
	ctx    *Ctx
	public bool
	bucket string
	client *s3.S3
}

// NewStorage returns a new instance of Storage for a given bucket and acl
func NewStorage(bucket string, public bool) *Storage {
	return &Storage{public: public, bucket: bucket, client: s3.New(AWSSession("S3"))}
}

func (s *Storage) WithCtx(ctx *Ctx) *Storage {
	return &Storage{ctx: ctx, public: s.public, bucket: s.bucket, client: s.client}
}

func (s *Storage) acl() string {
	if s.public {
		return "public-read"
	}
	return "private"
}

// Get retrieves the value of an object in storage
func (s *Storage) Get(key string) []byte {
	bs, err := s.GetErr(key)
	Check(err)
	return bs
}

// GetErr retrieves the value of an object in storage
func (s *Storage) GetErr(key string) ([]byte, error) {
	result, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(AWSS3Key(key)),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return ioutil.ReadAll(result.Body)
}

// Set stores the given value in storage
func (s *Storage) Set(key string, value []byte) {
	Check(s.SetErr(key, value))
}

// SetErr stores the given value in storage
func (s *Storage) SetErr(key string, value []byte) error {
	typ := http.DetectContentType(value)
	_, err := s.client.PutObject(&s3.PutObjectInput{
		ACL:           aws.String(s.acl()),
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(AWSS3Key(key)),
		Body:          bytes.NewReader(value),
		ContentType:   aws.String(typ),
		ContentLength: aws.Int64(int64(len(value))),
	})
	return err
}

// Delete removes the value at the given key
func (s *Storage) Delete(key string) {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(AWSS3Key(key)),
	})
	Check(err)
}
