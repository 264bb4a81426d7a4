package dto

// UploadForm carries the multipart fields accompanying a document upload.
type UploadForm struct {
	CopyCount int    `form:"copyCount,default=1"`
	PrintMode string `form:"printMode,default=SIMPLEX"`
}
