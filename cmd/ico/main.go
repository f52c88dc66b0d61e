package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/esimov/ico"
	"github.com/esimov/ico/utils"
	"golang.org/x/term"
)

const HelpBanner = `
┬┌─┐┌─┐
││  │ │
┴└─┘└─┘

Windows icon and cursor codec.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// result holds the relevant information about the conversion process and the generated icon.
type result struct {
	path string
	err  error
}

// options holds the icon set parameters shared by every conversion.
type options struct {
	sizes  []int
	format string
}

// spinner used to instantiate and call the progress indicator.
var spinner *utils.Spinner

// Version indicates the current build version.
var Version string

var (
	// Flags
	source       = flag.String("in", pipeName, "Source image, directory, URL or icon file")
	destination  = flag.String("out", pipeName, "Destination icon file or directory")
	sizeList     = flag.String("sizes", defaultSizes, "Comma separated list of icon sizes (1..256)")
	payload      = flag.String("format", formatPNG, "Payload format: png, bmp or both")
	manifestFile = flag.String("manifest", "", "YAML manifest describing the icon set")
	listEntries  = flag.Bool("list", false, "List the entries of an icon file")
	extractAll   = flag.Bool("extract", false, "Extract the frames of an icon file as PNG images")
	workers      = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	switch {
	case *listEntries:
		if err := listIcon(*source, os.Stdout); err != nil {
			log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
		}
	case *extractAll:
		if *destination == pipeName {
			log.Fatal(utils.DecorateText("Please provide a destination directory for the extracted frames!", utils.ErrorMessage))
		}
		paths, err := extractIcon(*source, *destination)
		if err != nil {
			log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
		}
		for _, path := range paths {
			fmt.Fprintf(os.Stderr, "%s %s\n", utils.DecorateText("✔", utils.SuccessMessage), path)
		}
	default:
		opts, err := buildOptions()
		if err != nil {
			flag.Usage()
			log.Fatal(utils.DecorateText("\n"+err.Error(), utils.ErrorMessage))
		}
		if failed := run(opts); failed {
			os.Exit(1)
		}
	}
}

// listIcon prints the directory of the icon file found at in.
// The source is released before returning, downloaded files included.
func listIcon(in string, w io.Writer) error {
	src, name, cleanup, err := openSource(in)
	if err != nil {
		return err
	}
	defer cleanup()

	icon, err := ico.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := printDirectory(w, icon); err != nil {
		return fmt.Errorf("failed to list %s: %w", name, err)
	}
	return nil
}

// extractIcon saves the frames of the icon file found at in into destDir.
func extractIcon(in, destDir string) ([]string, error) {
	src, name, cleanup, err := openSource(in)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	paths, err := extract(src, name, destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}
	return paths, nil
}

// buildOptions resolves the icon set parameters from the flags or the manifest.
func buildOptions() (*options, error) {
	if *manifestFile != "" {
		m, err := loadManifest(*manifestFile)
		if err != nil {
			return nil, err
		}
		sizes := make([]string, 0, len(m.Sizes))
		for _, s := range m.Sizes {
			sizes = append(sizes, fmt.Sprint(s))
		}
		*sizeList = strings.Join(sizes, ",")
		*payload = m.Format
	}

	if !validFormat(*payload) {
		return nil, fmt.Errorf("unsupported payload format: %s", *payload)
	}
	sizes, err := parseSizes(*sizeList)
	if err != nil {
		return nil, err
	}

	return &options{sizes: sizes, format: *payload}, nil
}

// run converts the source image, or every image of the source directory, into icon files.
// It reports whether any of the conversions failed.
func run(opts *options) bool {
	var (
		fs  os.FileInfo
		err error
	)

	// Supported files
	validExtensions := []string{".jpg", ".png", ".jpeg", ".bmp", ".gif"}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ ICO", utils.StatusMessage),
		utils.DecorateText("is generating the icons...", utils.DefaultMessage))
	spinner = utils.NewSpinner(spinnerText, time.Millisecond*200, true)

	// Capture CTRL-C signal and restore the cursor visibility back.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		spinner.RestoreCursor()
		os.Exit(1)
	}()

	// Check if the source is a pipe name, an URL or a regular file.
	switch {
	case *source == pipeName:
		fs, err = os.Stdin.Stat()
	case utils.IsValidUrl(*source):
		// Downloaded by the processor.
	default:
		fs, err = os.Stat(*source)
	}
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the source image: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	now := time.Now()
	failed := false

	if fs != nil && fs.Mode().IsDir() {
		var wg sync.WaitGroup
		// Read destination file or directory.
		if _, err := os.Stat(*destination); err != nil {
			if err := os.MkdirAll(*destination, 0755); err != nil {
				log.Fatalf(
					utils.DecorateText("Unable to get dir stats: %v\n", utils.ErrorMessage),
					utils.DecorateText(err.Error(), utils.DefaultMessage),
				)
			}
		}

		// Limit the concurrently running workers to maxWorkers.
		if *workers <= 0 || *workers > maxWorkers {
			*workers = runtime.NumCPU()
		}

		// Process recursively the image files from the specified directory concurrently.
		ch := make(chan result)
		done := make(chan interface{})
		defer close(done)

		paths, errc := walkDir(done, *source, validExtensions)

		spinner.Start()
		wg.Add(*workers)
		for i := 0; i < *workers; i++ {
			go func() {
				defer wg.Done()
				consumer(done, paths, *destination, opts, ch)
			}()
		}

		// Close the channel after the values are consumed.
		go func() {
			defer close(ch)
			wg.Wait()
		}()

		// Consume the channel values.
		var results []result
		for res := range ch {
			results = append(results, res)
		}
		spinner.Stop()

		for _, res := range results {
			if !printStatus(res.path, res.err) {
				failed = true
			}
		}
		if err := <-errc; err != nil {
			fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
			failed = true
		}
	} else {
		ext := filepath.Ext(*destination)
		if ext != ".ico" && *destination != pipeName {
			log.Fatal(utils.DecorateText(fmt.Sprintf("%v file type not supported, the destination should be an .ico file", ext), utils.ErrorMessage))
		}

		spinner.Start()
		err := processor(*source, *destination, opts)
		spinner.Stop()

		failed = !printStatus(*destination, err)
	}
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))

	return failed
}

// walkDir starts a goroutine to walk the specified directory tree in recursive manner
// and send the path of each regular file on the string channel.
// It sends the result of the walk on the error channel.
// It terminates in case done channel is closed.
func walkDir(
	done <-chan interface{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			if isValidExtension(strings.ToLower(filepath.Ext(info.Name())), srcExts) {
				select {
				case <-done:
					return errors.New("directory walk cancelled")
				case pathChan <- path:
				}
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// consumer reads the path names from the paths channel and
// calls the icon generator against the source image
// then sends the results on a new channel.
func consumer(
	done <-chan interface{},
	paths <-chan string,
	dest string,
	opts *options,
	res chan<- result,
) {
	for src := range paths {
		name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".ico"
		dst := filepath.Join(dest, name)
		err := processor(src, dst, opts)

		select {
		case <-done:
			return
		case res <- result{
			path: dst,
			err:  err,
		}:
		}
	}
}

// processor generates the icon set out of the source image and
// returns the error in case exists, otherwise nil.
func processor(in, out string, opts *options) error {
	src, _, closeSrc, err := openSource(in)
	if err != nil {
		return err
	}
	defer closeSrc()

	dst, closeDst, err := openDestination(out)
	if err != nil {
		return err
	}
	defer closeDst()

	return convert(src, dst, opts.sizes, opts.format)
}

// openSource opens the source path, which can be a local file, an URL or the stdin pipe.
// The returned function releases the resources associated with the source.
func openSource(in string) (io.Reader, string, func(), error) {
	// Check if the source path is a local image or URL.
	if utils.IsValidUrl(in) {
		f, err := utils.DownloadImage(in)
		if err != nil {
			return nil, "", nil, err
		}
		return f, filepath.Base(in), func() {
			f.Close()
			os.Remove(f.Name())
		}, nil
	}

	// Check if the source is a pipe name or a regular file.
	if in == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, "", nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return os.Stdin, "stdin", func() {}, nil
	}

	f, err := os.Open(in)
	if err != nil {
		return nil, "", nil, fmt.Errorf("unable to open the source file: %v", err)
	}
	return f, filepath.Base(in), func() { f.Close() }, nil
}

// openDestination opens the destination icon file. Encoding requires a seekable
// output, so stdout can only be redirected to a regular file.
func openDestination(out string) (io.Writer, func(), error) {
	// Check if the destination is a pipe name or a regular file.
	if out == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, errors.New("`-` should be used with a redirection for stdout")
		}
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(out)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create the destination file: %v", err)
	}
	return f, func() { f.Close() }, nil
}

// printStatus displays the relevant information about the conversion process.
// It reports whether the conversion succeeded.
func printStatus(fname string, err error) bool {
	if err != nil {
		fmt.Fprintf(os.Stderr,
			utils.DecorateText("\nError generating the icon: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err.Error()), utils.DefaultMessage),
		)
		if errors.Is(err, ico.ErrArgument) && fname == pipeName {
			fmt.Fprintln(os.Stderr, utils.DecorateText("\tThe icon can only be written to a seekable output.", utils.DefaultMessage))
		}
		return false
	}
	if fname != pipeName {
		fmt.Fprintf(os.Stderr, "\nThe icon has been saved as: %s %s\n",
			utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
	return true
}

// isValidExtension checks for the supported extensions.
func isValidExtension(ext string, extensions []string) bool {
	for _, ex := range extensions {
		if ex == ext {
			return true
		}
	}
	return false
}
