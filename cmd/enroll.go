package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [image-path]",
	Short: "Enroll one person or a directory of people",
	Long: `Enroll people from face images.

Single enrollment takes an image path plus --name and --roll:
  face-attendance enroll photo.jpg --name "Alice Novak" --roll R001

Bulk enrollment reads a directory with --dir. Files must be named
<roll>_<name>.<ext>, underscores in the name part become spaces:
  face-attendance enroll --dir ./class-photos
Failures are reported per file and do not stop the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Display name of the person")
	enrollCmd.Flags().String("roll", "", "Roll number, must be unique")
	enrollCmd.Flags().String("dir", "", "Directory of images named <roll>_<name>.<ext> for bulk enrollment")
}

// parseEnrollmentFilename splits <roll>_<name>.<ext> into its identity fields.
func parseEnrollmentFilename(filename string) (roll, name string, err error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	roll, rest, found := strings.Cut(base, "_")
	if !found || roll == "" || rest == "" {
		return "", "", fmt.Errorf("filename %q does not match <roll>_<name>.<ext>", filename)
	}
	return roll, strings.ReplaceAll(rest, "_", " "), nil
}

func enrollFile(ctx context.Context, service *attendance.Service, path, name, roll string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer file.Close()

	_, err = service.Enroll(ctx, attendance.EnrollRequest{
		Name:       name,
		RollNumber: roll,
		Filename:   filepath.Base(path),
		Image:      file,
	})
	return err
}

func runEnrollDir(ctx context.Context, service *attendance.Service, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot read folder %s: %w", dir, err)
	}

	var filePaths []string
	for _, entry := range entries {
		if entry.IsDir() || !storage.AllowedExtension(entry.Name()) {
			continue
		}
		filePaths = append(filePaths, filepath.Join(dir, entry.Name()))
	}

	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folder.")
		return nil
	}

	fmt.Printf("Found %d image(s) to enroll\n", len(filePaths))

	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrollErrors []string
	enrolled := 0
	for _, path := range filePaths {
		fileName := filepath.Base(path)

		roll, name, err := parseEnrollmentFilename(fileName)
		if err == nil {
			err = enrollFile(ctx, service, path, name, roll)
		}
		if err != nil {
			enrollErrors = append(enrollErrors, fmt.Sprintf("%s: %v", fileName, err))
			bar.Add(1)
			continue
		}
		enrolled++
		bar.Add(1)
	}
	fmt.Println()

	for _, errMsg := range enrollErrors {
		fmt.Printf("Failed: %s\n", errMsg)
	}
	fmt.Printf("Enrolled %d of %d\n", enrolled, len(filePaths))

	if enrolled == 0 {
		return errors.New("no files were enrolled successfully")
	}
	return nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	service, cleanup, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	if dir := mustGetString(cmd, "dir"); dir != "" {
		return runEnrollDir(ctx, service, dir)
	}

	if len(args) != 1 {
		return errors.New("provide an image path, or --dir for bulk enrollment")
	}

	name := mustGetString(cmd, "name")
	roll := mustGetString(cmd, "roll")
	if name == "" || roll == "" {
		return errors.New("--name and --roll are required for single enrollment")
	}

	if err := enrollFile(ctx, service, args[0], name, roll); err != nil {
		return err
	}
	fmt.Printf("Enrolled %s (%s)\n", name, roll)
	return nil
}
