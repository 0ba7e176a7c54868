package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/example/studybuddy/internal/extract"
	"github.com/example/studybuddy/internal/logger"
)

type fakeReader struct {
	name  string
	pages []string
	err   error
	calls int
}

func (f *fakeReader) Name() string { return f.name }

func (f *fakeReader) ReadPages(ctx context.Context, path string) ([]string, error) {
	f.calls++
	return f.pages, f.err
}

type fakeOCR struct {
	text  string
	err   error
	panic bool
	got   []byte
}

func (f *fakeOCR) RecognizeImage(ctx context.Context, image []byte) (string, error) {
	if f.panic {
		panic("decoder exploded")
	}
	f.got = image
	return f.text, f.err
}

var _ = Describe("Extractor", func() {
	var (
		ctx     context.Context
		tempDir string
		log     *logger.Logger
	)

	write := func(name string, data []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		tempDir, err = os.MkdirTemp("", "studybuddy-extract-*")
		Expect(err).NotTo(HaveOccurred())
		log = logger.NewWithWriter(GinkgoWriter)
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tempDir)).To(Succeed())
	})

	Context("plain text", func() {
		It("returns the file contents verbatim", func() {
			raw := "The sun is a star.\n  Indented line\twith tab\n\nünïcödé"
			path := write("notes.txt", []byte(raw))

			res := extract.New(log).Extract(ctx, path)
			Expect(res.OK()).To(BeTrue())
			Expect(res.Text).To(Equal(raw))
			Expect(res.Err).NotTo(HaveOccurred())
		})

		It("matches the extension case-insensitively", func() {
			path := write("NOTES.TXT", []byte("upper"))
			Expect(extract.New(log).Extract(ctx, path).Text).To(Equal("upper"))
		})

		It("reports whitespace-only files as empty but keeps their content", func() {
			path := write("blank.txt", []byte("  \n\t"))
			res := extract.New(log).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonEmpty))
			Expect(res.OK()).To(BeFalse())
			Expect(res.Text).To(Equal("  \n\t"))
		})

		It("reports an empty file as empty", func() {
			path := write("nothing.txt", nil)
			res := extract.New(log).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonEmpty))
			Expect(res.Text).To(BeEmpty())
		})

		It("reports a missing file as failed without panicking", func() {
			res := extract.New(log).Extract(ctx, filepath.Join(tempDir, "missing.txt"))
			Expect(res.Reason).To(Equal(extract.ReasonFailed))
			Expect(res.Err).To(HaveOccurred())
			Expect(res.Text).To(BeEmpty())
		})
	})

	DescribeTable("unsupported extensions yield empty text",
		func(name string) {
			path := write(name, []byte("content"))
			res := extract.New(log).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonUnsupported))
			Expect(res.Text).To(BeEmpty())
			Expect(res.Err).NotTo(HaveOccurred())
		},
		Entry("docx", "report.docx"),
		Entry("gif", "diagram.gif"),
		Entry("no extension", "README"),
	)

	Context("pdf", func() {
		It("concatenates pages in order with no separator", func() {
			reader := &fakeReader{name: "fake", pages: []string{"Page one.", "Page two.", "Page three."}}
			path := write("doc.PDF", []byte("%PDF-1.4"))

			res := extract.New(log, extract.WithPDFReaders(reader)).Extract(ctx, path)
			Expect(res.OK()).To(BeTrue())
			Expect(res.Text).To(Equal("Page one.Page two.Page three."))
		})

		It("falls back to the next reader", func() {
			broken := &fakeReader{name: "broken", err: errors.New("cannot open")}
			backup := &fakeReader{name: "backup", pages: []string{"recovered"}}
			path := write("doc.pdf", []byte("%PDF-1.4"))

			res := extract.New(log, extract.WithPDFReaders(broken, backup)).Extract(ctx, path)
			Expect(res.Text).To(Equal("recovered"))
			Expect(broken.calls).To(Equal(1))
			Expect(backup.calls).To(Equal(1))
		})

		It("fails when every reader fails", func() {
			a := &fakeReader{name: "a", err: errors.New("a broke")}
			b := &fakeReader{name: "b", err: errors.New("b broke")}
			path := write("doc.pdf", []byte("junk"))

			res := extract.New(log, extract.WithPDFReaders(a, b)).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonFailed))
			Expect(res.Err.Error()).To(ContainSubstring("a broke"))
			Expect(res.Err.Error()).To(ContainSubstring("b broke"))
		})

		It("treats a corrupt file as failed with the default readers", func() {
			path := write("corrupt.pdf", []byte("this is not a pdf at all"))
			res := extract.New(log).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonFailed))
			Expect(res.Text).To(BeEmpty())
		})
	})

	Context("images", func() {
		It("runs OCR on the whole image", func() {
			ocr := &fakeOCR{text: "Hello from a photo"}
			path := write("photo.JPG", []byte{0xff, 0xd8, 0xff})

			res := extract.New(log, extract.WithOCR(ocr)).Extract(ctx, path)
			Expect(res.Text).To(Equal("Hello from a photo"))
			Expect(ocr.got).To(Equal([]byte{0xff, 0xd8, 0xff}))
		})

		It("fails without an OCR backend", func() {
			path := write("scan.png", []byte{0x89, 'P', 'N', 'G'})
			res := extract.New(log).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonFailed))
			Expect(res.Err).To(MatchError(extract.ErrOCRUnavailable))
		})

		It("converts OCR errors and panics into failures", func() {
			path := write("scan.jpeg", []byte{1, 2, 3})

			res := extract.New(log, extract.WithOCR(&fakeOCR{err: errors.New("quota")})).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonFailed))

			res = extract.New(log, extract.WithOCR(&fakeOCR{panic: true})).Extract(ctx, path)
			Expect(res.Reason).To(Equal(extract.ReasonFailed))
			Expect(res.Err.Error()).To(ContainSubstring("decoder exploded"))
		})
	})

	DescribeTable("Supported",
		func(name string, ok bool) {
			Expect(extract.Supported(name)).To(Equal(ok))
		},
		Entry("pdf", "a.pdf", true),
		Entry("upper png", "a.PNG", true),
		Entry("jpeg", "a.jpeg", true),
		Entry("txt", "a.txt", true),
		Entry("docx", "a.docx", false),
	)
})
