package schema

// ContentType identifies the kind of content carried by a ContentPart.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
)

// ContentPart is one unit of multi-modal message content. Messages carry a
// slice of these rather than a single string so a turn can mix text,
// images, audio, video, and files in one payload.
type ContentPart interface {
	PartType() ContentType
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

func (TextPart) PartType() ContentType { return ContentText }

// ImagePart is image content, either inline bytes or a URL reference.
type ImagePart struct {
	Data     []byte
	MimeType string
	URL      string
}

func (ImagePart) PartType() ContentType { return ContentImage }

// AudioPart is audio content.
type AudioPart struct {
	Data       []byte
	Format     string
	SampleRate int
}

func (AudioPart) PartType() ContentType { return ContentAudio }

// VideoPart is video content, either inline bytes or a URL reference.
type VideoPart struct {
	Data     []byte
	MimeType string
	URL      string
}

func (VideoPart) PartType() ContentType { return ContentVideo }

// FilePart is an opaque file attachment.
type FilePart struct {
	Data     []byte
	Name     string
	MimeType string
}

func (FilePart) PartType() ContentType { return ContentFile }
