package handlers

type Response struct {
	Error string `json:"error"`
}

var (
	// Predefined errors
	OKResponse            = Response{}
	BadRequestResponse    = Response{"bad request"}
	ServerErrorResponse   = Response{"something went wrong"}
	NotFoundResponse      = Response{"upload session not found"}
	ChunkTooBigResponse   = Response{"chunk exceeds configured chunk size"}
	HandoffFailedResponse = Response{"permanent storage rejected the file"}
)
