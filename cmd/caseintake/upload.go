package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"caseintake/internal/intake"
	"caseintake/internal/models"
	"caseintake/internal/upload"
)

type slotFile struct {
	slot int
	path string
}

func parseSlotFiles(args []string) ([]slotFile, error) {
	out := make([]slotFile, 0, len(args))
	seen := map[int]bool{}
	for _, a := range args {
		name, path, ok := strings.Cut(a, "=")
		if !ok || path == "" {
			return nil, errors.Newf("%q: expected <slot>=<file>", a)
		}
		slot, ok := models.ParseSlot(name)
		if !ok {
			return nil, errors.Newf("%q: unknown slot", name)
		}
		if seen[slot] {
			return nil, errors.Newf("slot %s given twice", models.SlotKey(slot))
		}
		seen[slot] = true
		if err := upload.CheckFormat(slot, path); err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		out = append(out, slotFile{slot: slot, path: path})
	}
	return out, nil
}

func uploadCmd() *cobra.Command {
	var patientID, token string
	cmd := &cobra.Command{
		Use:   "upload <slot>=<file>...",
		Short: "Upload files into the slots of an existing case and save it",
		Long: "Slots are given by index (0-12) or key (img1..img11, model1, model2).\n" +
			"Slots that already hold a file must be emptied in the web form first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := parseSlotFiles(args)
			if err != nil {
				return err
			}
			if token == "" {
				token = os.Getenv("CASEINTAKE_TOKEN")
			}
			return runUpload(cmd.Context(), patientID, token, files)
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "", "patient id of the case")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default $CASEINTAKE_TOKEN)")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func runUpload(ctx context.Context, patientID, token string, files []slotFile) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	s, err := svc.manager.Create(ctx, token, patientID)
	if err != nil {
		return err
	}
	defer func() { _ = svc.manager.Drop(context.Background(), token, s.ID()) }()

	done := make(chan struct{})
	go printProgress(s, files, done)
	err = uploadSlots(ctx, s, token, files, svc.manager.Wait)
	close(done)
	if err != nil {
		return err
	}
	for _, n := range s.Notices(0) {
		fmt.Printf("%-7s %s\n", n.Level, n.Message)
	}
	return nil
}

// uploadSlots uploads files into s in parallel and saves the case. When any
// upload or the save fails, the files this run stored are deleted again so
// the bucket holds nothing the case does not reference.
func uploadSlots(ctx context.Context, s *intake.Session, token string, files []slotFile, settle func()) error {
	var (
		mu     sync.Mutex
		stored []int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			if err := uploadFile(gctx, s, f); err != nil {
				return errors.Wrapf(err, "%s", models.SlotKey(f.slot))
			}
			mu.Lock()
			stored = append(stored, f.slot)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		settle()
		err = s.Save(ctx, token)
	}
	if err != nil {
		for _, slot := range stored {
			if derr := s.DeleteFile(context.WithoutCancel(ctx), slot); derr != nil {
				err = errors.CombineErrors(err, errors.Wrapf(derr, "removing %s", models.SlotKey(slot)))
			}
		}
	}
	return err
}

func uploadFile(ctx context.Context, s *intake.Session, f slotFile) error {
	fh, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer fh.Close()
	st, err := fh.Stat()
	if err != nil {
		return err
	}
	_, err = s.Upload(ctx, f.slot, upload.File{Name: filepath.Base(f.path), Size: st.Size(), Body: fh})
	return err
}

func printProgress(s *intake.Session, files []slotFile, done <-chan struct{}) {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
		}
		snap := s.Slots()
		parts := make([]string, 0, len(files))
		for _, f := range files {
			parts = append(parts, fmt.Sprintf("%s %3.0f%%", models.SlotKey(f.slot), snap[f.slot].Progress))
		}
		fmt.Println(strings.Join(parts, "  "))
	}
}
