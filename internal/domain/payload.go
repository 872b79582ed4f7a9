package domain

// PayloadKind tells which pipeline stage produced a Payload.
type PayloadKind int

const (
	// PayloadNone means no image was attached.
	PayloadNone PayloadKind = iota
	// PayloadRemote is a retrieval URL of uploaded bytes.
	PayloadRemote
	// PayloadInline is a data URL within the size limit.
	PayloadInline
	// PayloadPassthrough is the original caller string, kept as a last resort.
	// It is the only kind allowed to exceed the size limit.
	PayloadPassthrough
)

func (kind PayloadKind) String() string {
	switch kind {
	case PayloadRemote:
		return "remote"
	case PayloadInline:
		return "inline"
	case PayloadPassthrough:
		return "passthrough"
	default:
		return "none"
	}
}

// Payload is the tagged result of resolving an ImageSource.
type Payload struct {
	Kind  PayloadKind
	Value string
}

// NoPayload is the result for a submission without an image.
func NoPayload() Payload {
	return Payload{Kind: PayloadNone, Value: ""}
}

// IsNone reports whether the payload carries no image.
func (p Payload) IsNone() bool {
	return p.Kind == PayloadNone
}

// Field flattens the payload to the untagged record field: nil without an image,
// the payload string otherwise.
func (p Payload) Field() *string {
	if p.IsNone() {
		return nil
	}

	value := p.Value

	return &value
}
