package utils

import (
	"net/http"
	"time"
)

// UploadHTTPClient is shared by evidence uploads, which can carry multi-MB
// screenshots over slow links.
var UploadHTTPClient = &http.Client{
	Timeout: 120 * time.Second,
}
