package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/kiln/pipeline/index"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [mount]",
	Short: "Show what a cooked mount point contains",
	Long: `Inspect reads a mount point's container index and lists the cooked
descriptors and resource files it catalogues. Without a mount name it
lists every mount point under the output root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listMounts()
		}
		return inspectMount(args[0])
	},
}

func listMounts() error {
	mounts, err := cookedMounts(cfg.Output.Root)
	if err != nil {
		return err
	}
	if len(mounts) == 0 {
		fmt.Printf("no cooked mount points under %s\n", cfg.Output.Root)
		return nil
	}
	rows := make([][]string, 0, len(mounts))
	for _, mount := range mounts {
		doc, err := readIndexDocument(cfg.Output.Root, mount)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			mount,
			strconv.Itoa(int(doc.ContentVersion)),
			strconv.Itoa(len(doc.Assets)),
			strconv.Itoa(len(doc.Files)),
		})
	}
	fmt.Println(renderTable(
		[]string{"MOUNT", "VERSION", "ASSETS", "FILES"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func inspectMount(mount string) error {
	doc, err := readIndexDocument(cfg.Output.Root, mount)
	if err != nil {
		return err
	}
	fmt.Printf("mount %s, content version %d, %d asset(s), %d file(s)\n\n",
		mount, doc.ContentVersion, len(doc.Assets), len(doc.Files))

	fileRows := make([][]string, 0, len(doc.Files))
	for _, rec := range doc.Files {
		fileRows = append(fileRows, []string{
			rec.Kind.String(),
			rec.Path,
			formatBytes(rec.Size),
			shortDigest(rec.Hash),
		})
	}
	fmt.Println(renderTable(
		[]string{"KIND", "PATH", "SIZE", "DIGEST"},
		fileRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	assetRows := make([][]string, 0, len(doc.Assets))
	for _, entry := range doc.Assets {
		path := entry.Path
		if path == "" {
			path = "(in resource table)"
		}
		assetRows = append(assetRows, []string{
			entry.Type.String(),
			entry.Key.String()[:12],
			path,
			entry.VirtualPath,
			formatBytes(entry.Size),
			shortDigest(entry.Hash),
		})
	}
	fmt.Println(renderTable(
		[]string{"TYPE", "KEY", "PATH", "SOURCE", "SIZE", "DIGEST"},
		assetRows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

// cookedMounts lists the directories under the output root that carry a
// container index, sorted by name.
func cookedMounts(outputRoot string) ([]string, error) {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var mounts []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(outputRoot, entry.Name(), index.FileName)); err == nil {
			mounts = append(mounts, entry.Name())
		}
	}
	return mounts, nil
}

func readIndexDocument(outputRoot, mount string) (*index.Document, error) {
	data, err := os.ReadFile(filepath.Join(outputRoot, mount, index.FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mount %s has not been cooked under %s", mount, outputRoot)
		}
		return nil, err
	}
	doc, err := index.Read(data)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", mount, err)
	}
	return doc, nil
}

func shortDigest(hash [32]byte) string {
	return digest.NewDigestFromBytes(digest.SHA256, hash[:]).Encoded()[:12]
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}
