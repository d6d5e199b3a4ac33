package storage

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ErrNotFound indicates the targeted task row is absent from the store.
var ErrNotFound = errors.New("task not found")

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
