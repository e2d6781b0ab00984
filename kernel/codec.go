package kernel

// Frame is an outbound WebSocket payload a Codec produces for a
// subscribe/unsubscribe request. Text frames are the common case; a
// codec that needs binary framing can still use this (gorilla/websocket
// treats []byte uniformly for the text message type used here).
type Frame []byte

// Codec is the sole place a venue's stream-identifier grammar lives:
// subscription encoding and push-message decoding. Message is left as
// `any`; venue packages define their own tagged-union message type and
// type-assert it back out of DecodeMessage's return value, since Go has
// no generic interface-with-associated-type equivalent to the
// originating codec trait.
type Codec interface {
	EncodeSubscription(streams []string) (Frame, error)
	EncodeUnsubscription(streams []string) (Frame, error)

	// DecodeMessage translates one raw inbound frame. A nil return means
	// the frame carried no application-level message (e.g. a bare
	// subscription ack) and should be ignored.
	DecodeMessage(raw []byte) (any, error)
}
