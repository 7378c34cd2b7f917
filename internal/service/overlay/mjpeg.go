package overlay

// Boundary separates parts of the multipart video response.
const Boundary = "frame"

// ContentType is the response type for a stream of Chunk values.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

const chunkHeader = "--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n"

// Chunk frames one JPEG as a multipart part.
func Chunk(jpeg []byte) []byte {
	out := make([]byte, 0, len(chunkHeader)+len(jpeg)+2)
	out = append(out, chunkHeader...)
	out = append(out, jpeg...)
	out = append(out, '\r', '\n')
	return out
}
