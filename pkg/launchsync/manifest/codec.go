package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// Wire representations. Element and attribute names match the documents
// served by existing servers and must not change.

type serverManifestXML struct {
	XMLName     xml.Name `xml:"ServerManifest"`
	Version     int      `xml:"version,attr"`
	Name        string   `xml:"Name"`
	Description string   `xml:"Description"`
	LoginServer string   `xml:"LoginServer"`
	LoginAPIURL string   `xml:"LoginApiUrl"`
	RegisterURL *string  `xml:"RegisterUrl"`
}

type clientManifestXML struct {
	XMLName   xml.Name  `xml:"ClientManifest"`
	Version   int       `xml:"version,attr"`
	Languages string    `xml:"languages,attr"`
	Root      folderXML `xml:"Folder"`
}

type folderXML struct {
	Name    string      `xml:"name,attr"`
	Files   []fileXML   `xml:"File"`
	Folders []folderXML `xml:"Folder"`
}

type fileXML struct {
	Name string `xml:"name,attr"`
	Size uint32 `xml:"size,attr"`
	Hash uint64 `xml:"hash,attr"`
}

// PeekVersion returns the version attribute of the root element without
// reading the rest of the document.
func PeekVersion(data []byte) (int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: no root element", types.ErrMalformed)
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", types.ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, a := range start.Attr {
			if a.Name.Space == "" && a.Name.Local == "version" {
				v, err := strconv.Atoi(strings.TrimSpace(a.Value))
				if err != nil {
					return 0, fmt.Errorf("%w: version %q is not a number", types.ErrVersionMismatch, a.Value)
				}
				return v, nil
			}
		}
		return 0, fmt.Errorf("%w: root element %s has no version attribute", types.ErrVersionMismatch, start.Name.Local)
	}
}

// CheckVersion fails with types.ErrVersionMismatch unless the document's
// root version equals the expected version of doc.
func CheckVersion(doc DocType, data []byte) error {
	v, err := PeekVersion(data)
	if err != nil {
		return err
	}
	if want := doc.ExpectedVersion(); v != want {
		return fmt.Errorf("%w: got version %d, want %d", types.ErrVersionMismatch, v, want)
	}
	return nil
}

// DecodeServerManifest checks the version, validates data against the
// server manifest schema, and maps it onto a ServerManifest.
func DecodeServerManifest(data []byte) (*ServerManifest, error) {
	if err := decodeChecked(DocServerManifest, data); err != nil {
		return nil, err
	}

	var w serverManifestXML
	if err := xml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformed, err)
	}

	m := &ServerManifest{
		Version:     w.Version,
		Name:        strings.TrimSpace(w.Name),
		Description: strings.TrimSpace(w.Description),
		LoginServer: strings.TrimSpace(w.LoginServer),
		LoginAPIURL: strings.TrimSpace(w.LoginAPIURL),
	}
	if w.RegisterURL != nil {
		m.RegisterURL = strings.TrimSpace(*w.RegisterURL)
	}
	return m, nil
}

// DecodeClientManifest checks the version, validates data against the
// client manifest schema, and maps it onto a ClientManifest.
func DecodeClientManifest(data []byte) (*ClientManifest, error) {
	if err := decodeChecked(DocClientManifest, data); err != nil {
		return nil, err
	}

	var w clientManifestXML
	if err := xml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformed, err)
	}

	locales, err := ParseLocales(w.Languages)
	if err != nil {
		return nil, &SchemaError{Path: "ClientManifest/@languages", Reason: err.Error()}
	}

	return &ClientManifest{
		Version: w.Version,
		Locales: locales,
		Root:    folderFromXML(w.Root),
	}, nil
}

func decodeChecked(doc DocType, data []byte) error {
	if err := CheckVersion(doc, data); err != nil {
		return err
	}
	return Validate(doc, data)
}

func folderFromXML(w folderXML) ClientFolder {
	f := ClientFolder{Name: w.Name}
	if len(w.Folders) > 0 {
		f.Folders = make([]ClientFolder, len(w.Folders))
		for i, sub := range w.Folders {
			f.Folders[i] = folderFromXML(sub)
		}
	}
	if len(w.Files) > 0 {
		f.Files = make([]ClientFile, len(w.Files))
		for i, file := range w.Files {
			f.Files[i] = ClientFile{Name: file.Name, Size: file.Size, Hash: file.Hash}
		}
	}
	return f
}

func folderToXML(f ClientFolder) folderXML {
	w := folderXML{Name: f.Name}
	for _, file := range f.Files {
		w.Files = append(w.Files, fileXML{Name: file.Name, Size: file.Size, Hash: file.Hash})
	}
	for _, sub := range f.Folders {
		w.Folders = append(w.Folders, folderToXML(sub))
	}
	return w
}

// EncodeServerManifest renders m as an indented XML document.
func EncodeServerManifest(m *ServerManifest) ([]byte, error) {
	w := serverManifestXML{
		Version:     m.Version,
		Name:        m.Name,
		Description: m.Description,
		LoginServer: m.LoginServer,
		LoginAPIURL: m.LoginAPIURL,
	}
	if m.RegisterURL != "" {
		w.RegisterURL = &m.RegisterURL
	}
	return marshalDocument(w)
}

// EncodeClientManifest renders m as an indented XML document.
func EncodeClientManifest(m *ClientManifest) ([]byte, error) {
	return marshalDocument(clientManifestXML{
		Version:   m.Version,
		Languages: FormatLocales(m.Locales),
		Root:      folderToXML(m.Root),
	})
}

func marshalDocument(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
