package arbiter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Arbiter", func() {
	var (
		dir       string
		ctx       context.Context
		arb       *Arbiter
		original  string
		candidate string
		mtime     time.Time
	)

	write := func(path string, size int) {
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, make([]byte, size), 0644)).To(Succeed())
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()
		arb = &Arbiter{MaxSizeRatio: 0.90, DryRunSizeRatio: 0.80}

		original = filepath.Join(dir, "VID_20150807_091302123.mp4")
		candidate = filepath.Join(dir, "2015-08-07-11h13m02.mp4")
		mtime = time.Date(2015, 8, 7, 9, 13, 2, 0, time.UTC)

		write(original, 1_000_000)
		Expect(os.Chtimes(original, mtime, mtime)).To(Succeed())
	})

	It("keeps the original at the candidate path when savings are insufficient", func() {
		write(candidate, 950_000)

		out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: candidate})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kept).To(Equal(OriginalKept))
		Expect(out.Ratio).To(BeNumerically("~", 0.95, 0.001))

		Expect(original).NotTo(BeAnExistingFile())
		info, err := os.Stat(candidate)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size()).To(Equal(int64(1_000_000)))
	})

	It("keeps the candidate and restores the original's times", func() {
		write(candidate, 500_000)

		out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: candidate})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kept).To(Equal(CandidateKept))
		Expect(out.Path).To(Equal(candidate))

		Expect(original).NotTo(BeAnExistingFile())
		info, err := os.Stat(candidate)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size()).To(Equal(int64(500_000)))
		Expect(info.ModTime().Equal(mtime)).To(BeTrue())
	})

	It("treats a ratio exactly at the limit as a win for the candidate", func() {
		write(candidate, 900_000)

		out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: candidate})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kept).To(Equal(CandidateKept))
	})

	Context("when the original already sits at its canonical path", func() {
		var temp string

		BeforeEach(func() {
			temp = filepath.Join(dir, ".classify-tmp.mp4")
		})

		It("renames the candidate over the original", func() {
			write(temp, 400_000)

			out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: temp, Destination: original})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Kept).To(Equal(CandidateKept))

			Expect(temp).NotTo(BeAnExistingFile())
			info, err := os.Stat(original)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size()).To(Equal(int64(400_000)))
			Expect(info.ModTime().Equal(mtime)).To(BeTrue())
		})

		It("drops the candidate and leaves the original alone", func() {
			write(temp, 990_000)

			out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: temp, Destination: original})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Kept).To(Equal(OriginalKept))

			Expect(temp).NotTo(BeAnExistingFile())
			info, err := os.Stat(original)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size()).To(Equal(int64(1_000_000)))
		})
	})

	It("moves the kept original to a separate destination", func() {
		temp := filepath.Join(dir, ".classify-tmp.mp4")
		dest := filepath.Join(dir, "out", "2015-08-07-11h13m02.mp4")
		write(temp, 999_000)

		out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: temp, Destination: dest})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kept).To(Equal(OriginalKept))
		Expect(out.Path).To(Equal(dest))
		Expect(dest).To(BeAnExistingFile())
		Expect(original).NotTo(BeAnExistingFile())
		Expect(temp).NotTo(BeAnExistingFile())
	})

	It("moves a kept original to its own destination", func() {
		dest := filepath.Join(dir, "2015-08-07-11h13m02.mp4")
		origDest := filepath.Join(dir, "2015-08-07-11h13m02.mkv")
		write(dest, 990_000)

		out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: dest, OriginalDestination: origDest})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kept).To(Equal(OriginalKept))
		Expect(out.Path).To(Equal(origDest))
		Expect(origDest).To(BeAnExistingFile())
		Expect(dest).NotTo(BeAnExistingFile())
	})

	It("fails without touching the original when the candidate is missing", func() {
		_, err := arb.Resolve(ctx, Pair{Original: original, Candidate: candidate})
		Expect(errors.Is(err, ErrCandidateMissing)).To(BeTrue())
		Expect(original).To(BeAnExistingFile())
	})

	It("predicts the outcome in dry-run without touching files", func() {
		arb.DryRun = true

		out, err := arb.Resolve(ctx, Pair{Original: original, Candidate: candidate})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kept).To(Equal(CandidateKept))
		Expect(out.CandidateSize).To(Equal(int64(800_000)))

		Expect(original).To(BeAnExistingFile())
		Expect(candidate).NotTo(BeAnExistingFile())
	})

	It("stops when the context is cancelled", func() {
		write(candidate, 500_000)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := arb.Resolve(cancelled, Pair{Original: original, Candidate: candidate})
		Expect(err).To(MatchError(context.Canceled))
		Expect(original).To(BeAnExistingFile())
	})
})
