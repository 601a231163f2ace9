package util

const (
	DateFormat = "2006-01-02"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// MIME type of .xlsx uploads
const MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var AllowedImportExtensions = []string{".xlsx"}
