package naming

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const format = "%Y-%m-%d-%Hh%Mm%S"

var _ = Describe("Namer", func() {
	var (
		dir   string
		namer *Namer
		ts    time.Time
	)

	touch := func(name string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(name), 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		namer = NewNamer(format)
		ts = time.Date(2017, 3, 4, 10, 20, 30, 0, time.UTC)
	})

	It("formats the capture time and normalizes the extension", func() {
		src := touch("IMG_1234.JPEG")

		dest, err := namer.NameFor(src, dir, ts, ".JPEG")
		Expect(err).NotTo(HaveOccurred())
		Expect(dest).To(Equal(filepath.Join(dir, "2017-03-04-10h20m30.jpg")))
	})

	It("returns the source unchanged when it is already named correctly", func() {
		src := touch("2017-03-04-10h20m30.mp4")

		dest, err := namer.NameFor(src, dir, ts, ".mp4")
		Expect(err).NotTo(HaveOccurred())
		Expect(dest).To(Equal(src))
	})

	It("keeps an already suffixed source in place", func() {
		touch("2017-03-04-10h20m30.jpg")
		src := touch("2017-03-04-10h20m30a.jpg")

		dest, err := namer.NameFor(src, dir, ts, ".jpg")
		Expect(err).NotTo(HaveOccurred())
		Expect(dest).To(Equal(src))
	})

	It("appends suffixes in call order for colliding sources", func() {
		first := touch("one.jpg")
		second := touch("two.jpg")
		third := touch("three.jpg")

		var got []string
		for _, src := range []string{first, second, third} {
			dest, err := namer.NameFor(src, dir, ts, ".jpg")
			Expect(err).NotTo(HaveOccurred())
			got = append(got, filepath.Base(dest))
		}
		Expect(got).To(Equal([]string{
			"2017-03-04-10h20m30.jpg",
			"2017-03-04-10h20m30a.jpg",
			"2017-03-04-10h20m30b.jpg",
		}))
	})

	It("skips names occupied on disk", func() {
		touch("2017-03-04-10h20m30.jpg")
		src := touch("new.jpg")

		dest, err := namer.NameFor(src, dir, ts, ".jpg")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Base(dest)).To(Equal("2017-03-04-10h20m30a.jpg"))
	})

	It("gives the same source the same reservation again", func() {
		src := touch("one.jpg")

		first, err := namer.NameFor(src, dir, ts, ".jpg")
		Expect(err).NotTo(HaveOccurred())
		second, err := namer.NameFor(src, dir, ts, ".jpg")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
		Expect(namer.Reserved(first)).To(BeTrue())

		namer.Release(first)
		Expect(namer.Reserved(first)).To(BeFalse())
	})

	It("never hands out the source path for copies", func() {
		src := touch("2017-03-04-10h20m30.jpg")

		dest, err := namer.NameForCopy(src, dir, ts, ".jpg")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Base(dest)).To(Equal("2017-03-04-10h20m30a.jpg"))
	})

	It("fails after the last suffix", func() {
		touch("2017-03-04-10h20m30.jpg")
		for c := 'a'; c <= 'z'; c++ {
			touch("2017-03-04-10h20m30" + string(c) + ".jpg")
		}
		src := touch("late.jpg")

		_, err := namer.NameFor(src, dir, ts, ".jpg")
		Expect(errors.Is(err, ErrNamespaceExhausted)).To(BeTrue())

		var exhausted *NamespaceExhaustedError
		Expect(errors.As(err, &exhausted)).To(BeTrue())
		Expect(exhausted.Source).To(Equal(src))
	})
})

var _ = Describe("Matches", func() {
	DescribeTable("name format matching",
		func(base string, expected bool) {
			Expect(Matches(base, format)).To(Equal(expected))
		},
		Entry("exact", "2017-03-04-10h20m30", true),
		Entry("suffixed", "2017-03-04-10h20m30b", true),
		Entry("camera name", "VID_20150807_091302123", false),
		Entry("two suffix letters", "2017-03-04-10h20m30ab", false),
		Entry("upper-case suffix", "2017-03-04-10h20m30B", false),
		Entry("empty", "", false),
	)
})

var _ = Describe("NormalizeExt", func() {
	DescribeTable("extension normalization",
		func(input, expected string) {
			Expect(NormalizeExt(input)).To(Equal(expected))
		},
		Entry("jpeg", ".JPEG", ".jpg"),
		Entry("jpg", ".jpg", ".jpg"),
		Entry("mov", ".MOV", ".mov"),
		Entry("no dot", "mp4", ".mp4"),
		Entry("empty", "", ""),
	)
})
