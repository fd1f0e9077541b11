package iap

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
)

// InAppPlatformAndroid is the Play Console public key of an application
type InAppPlatformAndroid struct {
	ApplicationID string `dynamo:"applicationId"`
	PublicKey     string `dynamo:"publicKey"`
}

// AndroidKeySource lists the public keys of every supported application
type AndroidKeySource interface {
	GetAndroidList() ([]InAppPlatformAndroid, error)
}

// DynamoAndroidSource reads the keys from a DynamoDB table
type DynamoAndroidSource struct {
	Region string
	Table  string
}

// GetAndroidList to fetch every iap information for google play store
func (source *DynamoAndroidSource) GetAndroidList() ([]InAppPlatformAndroid, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}

	db := dynamo.New(sess, &aws.Config{Region: aws.String(source.Region)})
	table := db.Table(source.Table)

	var results []InAppPlatformAndroid
	err = table.Scan().All(&results)
	if err != nil {
		return nil, err
	}

	return results, nil
}

// StaticAndroidSource maps package names to base64 encoded public keys
type StaticAndroidSource map[string]string

// GetAndroidList returns the configured keys
func (source StaticAndroidSource) GetAndroidList() ([]InAppPlatformAndroid, error) {
	results := make([]InAppPlatformAndroid, 0, len(source))
	for applicationID, publicKey := range source {
		results = append(results, InAppPlatformAndroid{ApplicationID: applicationID, PublicKey: publicKey})
	}
	return results, nil
}
