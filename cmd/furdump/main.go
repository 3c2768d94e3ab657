package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/QEStudios/FurnaceModuleReader/parser/furnace"
	"github.com/QEStudios/FurnaceModuleReader/tracker"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	var subsongIndex int
	var dumpFull bool
	pflag.IntVarP(&subsongIndex, "subsong", "s", 0, "subsong index to summarize")
	pflag.BoolVarP(&dumpFull, "dump", "d", false, "dump the full decoded module structure")
	pflag.Parse()

	// Get the path of the module file.
	path, err := choosePath(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Printf("User cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("failed to determine file path: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatalf("error reading file: %v", err)
	}

	result, err := furnace.NewDecoder(data, logger).Decode()
	if err != nil {
		logger.Fatalf("decode error: %v", err)
	}

	if dumpFull {
		spew.Dump(result.Module)
	}

	imported, err := tracker.Convert(result.Module)
	if err != nil {
		logger.Fatalf("convert error: %v", err)
	}

	if subsongIndex > 0 {
		song, ok := imported.ExtraSongs[subsongIndex]
		if !ok {
			logger.Fatalf("subsong %d does not exist; module contains %d subsong(s)",
				subsongIndex, len(result.Module.SubSongs))
		}
		fmt.Printf("subsong %d: %q, tempo %d speed %d, %d order(s)\n",
			subsongIndex, song.Name, song.Tempo, song.Speed, len(song.Grid))
		return
	}

	fmt.Println(imported.Summary())
}

// choosePath returns the file path either from the command-line args
// or from an interactive file dialog.
func choosePath(cwd string, args []string) (string, error) {
	// If an argument was passed to the program, use it.
	if len(args) > 0 {
		path := args[0]
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath); err != nil {
			return "", fmt.Errorf("passed argument is not a valid path: %w", err)
		}
		return absPath, nil
	}

	// Otherwise open the file dialog.
	path, err := dialog.
		File().
		Title("Open Furnace module").
		Filter("Furnace modules (*.fur)", "fur").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// Propagate the error. Caller will check for dialog.ErrCancelled.
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}

	// Check for empty path just in case.
	if absPath == "" {
		return "", dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return "", fmt.Errorf("dialog selection invalid: %w", err)
	}
	return absPath, nil
}

// validatePath performs simple checks to verify if a file exists or not.
func validatePath(p string) error {
	if strings.ToLower(filepath.Ext(p)) != ".fur" {
		return fmt.Errorf("file must have .fur extension")
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	return nil
}
