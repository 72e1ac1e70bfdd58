package utils

// Header names shared by the HTTP surface and the stream clients.
const (
	HEADER_AUTH_KEY   = "authorization"
	HEADER_SOURCE_KEY = "x-cartline-source"
)
