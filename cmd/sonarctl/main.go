// Command sonarctl is Sonar's operator CLI: admin bootstrap, bulk
// filesystem import, blob garbage collection, and listen-count
// reconciliation, following the teacher's cmd/scanner directory-walk
// pattern but routed through the engine instead of a bespoke scanner.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sonar/internal/config"
	"sonar/internal/engine"
	"sonar/internal/importpipeline"
)

func main() {
	root := &cobra.Command{
		Use:   "sonarctl",
		Short: "Operate a Sonar deployment out-of-band from the running server",
	}
	root.AddCommand(
		newAdminUserCmd(),
		newImportCmd(),
		newGCCmd(),
		newReconcileCmd(),
	)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newAdminUserCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "adminuser",
		Short: "Manage admin users",
	}

	var username, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			e, err := engine.New(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.Auth.Register(username, password, true)
			if err != nil {
				return err
			}
			fmt.Printf("created admin user %q (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "admin username")
	create.Flags().StringVar(&password, "password", "", "admin password")
	create.MarkFlagRequired("username")
	create.MarkFlagRequired("password")

	parent.AddCommand(create)
	return parent
}

// extToMime maps a filename extension to the mime type the audio
// capability pipeline recognizes, mirroring the format switch in
// capability.FormatAudioExtractor.
var extToMime = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".wav":  "audio/wav",
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Recursively import every recognized audio file under path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			e, err := engine.New(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			root := args[0]
			var imported, skipped, failed int
			err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() {
					return nil
				}
				mime, ok := extToMime[strings.ToLower(filepath.Ext(path))]
				if !ok {
					skipped++
					return nil
				}

				f, err := os.Open(path)
				if err != nil {
					log.Printf("sonarctl: opening %s: %v", path, err)
					failed++
					return nil
				}
				defer f.Close()

				result, err := e.Import.Import(f, mime, importpipeline.Hints{Filepath: path})
				if err != nil {
					log.Printf("sonarctl: importing %s: %v", path, err)
					failed++
					return nil
				}
				imported++
				fmt.Printf("imported %s -> %s / %s / %s\n", path, result.Artist.Name, result.Album.Name, result.Track.Name)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("done: %d imported, %d skipped, %d failed\n", imported, skipped, failed)
			return nil
		},
	}
	return cmd
}

func newGCCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete blob store files no longer referenced by any image or audio row",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			e, err := engine.New(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			referenced, err := e.Catalog.ReferencedBlobKeys()
			if err != nil {
				return err
			}
			if dryRun {
				keys, err := e.Blobs.Keys()
				if err != nil {
					return err
				}
				var orphaned int
				for _, k := range keys {
					if !referenced[k] {
						orphaned++
						fmt.Println(k)
					}
				}
				fmt.Printf("dry run: %d orphaned blobs\n", orphaned)
				return nil
			}

			removed, err := e.Blobs.GC(referenced)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d orphaned blobs\n", len(removed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphaned blobs without deleting them")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute artist/album/track listen counts from the scrobbles table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			e, err := engine.New(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Catalog.ReconcileListenCounts(); err != nil {
				return err
			}
			fmt.Println("listen counts reconciled")
			return nil
		},
	}
}
