package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [mount...]",
	Short: "Re-hash cooked output against the container indexes",
	Long: `Verify reads each mount point's container index and re-hashes every
catalogued file on disk, reporting anything missing, truncated or
modified since it was cooked. Without arguments every cooked mount point
is verified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(args)
	},
}

type verifyProblem struct {
	mount  string
	path   string
	detail string
}

func runVerify(mounts []string) error {
	if len(mounts) == 0 {
		found, err := cookedMounts(cfg.Output.Root)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Printf("no cooked mount points under %s\n", cfg.Output.Root)
			return nil
		}
		mounts = found
	}

	var (
		mu       sync.Mutex
		problems []verifyProblem
		checked  int
		embedded int
	)
	report := func(p verifyProblem) {
		mu.Lock()
		problems = append(problems, p)
		mu.Unlock()
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, mount := range mounts {
		mount := mount
		doc, err := readIndexDocument(cfg.Output.Root, mount)
		if err != nil {
			return err
		}
		mountDir := filepath.Join(cfg.Output.Root, mount)
		for _, rec := range doc.Files {
			rec := rec
			checked++
			eg.Go(func() error {
				if detail := checkRecordedFile(mountDir, rec.Path, rec.Size, rec.Hash); detail != "" {
					report(verifyProblem{mount: mount, path: rec.Path, detail: detail})
				}
				return nil
			})
		}
		for _, entry := range doc.Assets {
			if entry.Path == "" {
				embedded++
				continue
			}
			entry := entry
			checked++
			eg.Go(func() error {
				if detail := checkRecordedFile(mountDir, entry.Path, entry.Size, entry.Hash); detail != "" {
					report(verifyProblem{mount: mount, path: entry.Path, detail: detail})
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if len(problems) == 0 {
		fmt.Printf("verified %d file(s) across %d mount point(s)", checked, len(mounts))
		if embedded > 0 {
			fmt.Printf(", %d embedded payload(s) covered by their data files", embedded)
		}
		fmt.Println()
		return nil
	}

	sort.Slice(problems, func(i, j int) bool {
		if problems[i].mount != problems[j].mount {
			return problems[i].mount < problems[j].mount
		}
		return problems[i].path < problems[j].path
	})
	rows := make([][]string, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, []string{p.mount, p.path, p.detail})
	}
	fmt.Println(renderTable(
		[]string{"MOUNT", "PATH", "PROBLEM"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
	return fmt.Errorf("%d of %d file(s) failed verification", len(problems), checked)
}

// checkRecordedFile re-hashes one catalogued file and returns a human
// readable description of the mismatch, or "" when the file matches its
// recorded size and digest.
func checkRecordedFile(mountDir, relPath string, size uint64, hash [32]byte) string {
	f, err := os.Open(filepath.Join(mountDir, filepath.FromSlash(relPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return "missing"
		}
		return err.Error()
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err.Error()
	}
	if info.Size() != int64(size) {
		return fmt.Sprintf("size %d, recorded %d", info.Size(), size)
	}

	want := digest.NewDigestFromBytes(digest.SHA256, hash[:])
	verifier := want.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return err.Error()
	}
	if !verifier.Verified() {
		return "content does not match recorded digest"
	}
	return ""
}

func init() {
	RootCmd.AddCommand(verifyCmd)
}
