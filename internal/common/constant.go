package common

// TokenByteSize is the number of random bytes in a session token. Hex encoding
// doubles it on the wire.
const TokenByteSize = 32
