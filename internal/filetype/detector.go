package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Class groups detected types by how the bundler treats them.
type Class int

const (
	ClassUnsupported Class = iota
	ClassPDF
	ClassWordProcessor
)

func (c Class) String() string {
	switch c {
	case ClassPDF:
		return "pdf"
	case ClassWordProcessor:
		return "word-processor"
	default:
		return "unsupported"
	}
}

// MIME types the bundler accepts.
const (
	MIMEPDF  = "application/pdf"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDoc  = "application/msword"
	MIMEOdt  = "application/vnd.oasis.opendocument.text"
	MIMERtf  = "text/rtf"
)

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Class       Class
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename.
// Container formats (ZIP, OLE) are narrowed using the extension.
func (d *Detector) Detect(filePath string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	info := &FileTypeInfo{MIMEType: mtype.String(), Extension: mtype.Extension()}
	ext := strings.ToLower(filepath.Ext(filePath))

	switch {
	case mtype.Is("application/zip"):
		// Some generators write DOCX/ODT files that only sniff as ZIP.
		switch ext {
		case ".docx":
			info.MIMEType, info.Extension = MIMEDocx, ".docx"
		case ".odt":
			info.MIMEType, info.Extension = MIMEOdt, ".odt"
		}
	case mtype.Is("application/x-ole-storage"):
		if ext == ".doc" {
			info.MIMEType, info.Extension = MIMEDoc, ".doc"
		}
	}
	if info.MIMEType != mtype.String() {
		log.Debug().Str("original", mtype.String()).Str("override", info.MIMEType).Str("file", filePath).
			Msg("overriding container detection based on extension")
	}

	classify(info)
	log.Debug().Str("mime", info.MIMEType).Str("class", info.Class.String()).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// classify determines how the bundler handles the type.
func classify(info *FileTypeInfo) {
	base := strings.TrimSpace(strings.SplitN(info.MIMEType, ";", 2)[0])
	switch base {
	case MIMEPDF:
		info.Class = ClassPDF
		info.Description = "PDF document"
	case MIMEDocx:
		info.Class = ClassWordProcessor
		info.Description = "Microsoft Word document"
	case MIMEDoc:
		info.Class = ClassWordProcessor
		info.Description = "Microsoft Word document (legacy)"
	case MIMEOdt:
		info.Class = ClassWordProcessor
		info.Description = "OpenDocument text"
	case MIMERtf, "application/rtf":
		info.Class = ClassWordProcessor
		info.Description = "Rich Text Format"
	default:
		info.Class = ClassUnsupported
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}
