package model

// ContentClass is the result of classifying an address by its pattern.
// HTML addresses go down the page path; every other class is fetched as a
// binary document and its class is stored as the blob's data type code.
type ContentClass string

const (
	// ClassHTML marks an address expected to serve an HTML page.
	ClassHTML ContentClass = "HTML"

	// ClassPDF is a PDF document.
	ClassPDF ContentClass = "PDF"

	// ClassDOC is a legacy Word document.
	ClassDOC ContentClass = "DOC"

	// ClassDOCX is an Office Open XML Word document.
	ClassDOCX ContentClass = "DOCX"

	// ClassPPT is a legacy PowerPoint presentation.
	ClassPPT ContentClass = "PPT"

	// ClassPPTX is an Office Open XML PowerPoint presentation.
	ClassPPTX ContentClass = "PPTX"

	// ClassBinary is any other non-HTML resource.
	ClassBinary ContentClass = "BINARY"
)

// IsHTML reports whether the class selects the HTML path.
func (c ContentClass) IsHTML() bool {
	return c == ClassHTML
}

// String implements fmt.Stringer.
func (c ContentClass) String() string {
	return string(c)
}
