// Package prepare preprocesses every document of a book ahead of time and
// produces directory which could be used as book's static root by any plain
// file server.
package prepare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"pview/book"
	"pview/config"
	"pview/preprocess"
	"pview/state"
)

// ManifestName is name of the book manifest written next to prepared
// documents.
const ManifestName = "book.json"

func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("prepare")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := env.LoadStylesheet(); err != nil {
		return err
	}
	root, err := env.StaticRoot()
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("root", root))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	opts := options{
		overwrite:    cmd.Bool("overwrite"),
		codePage:     CodePage(cmd.String("force-zip-cp"), log),
		nameTemplate: env.Cfg.Prepare.OutputNameTemplate,
	}
	return process(ctx, src, dst, env.Preprocessor(root), env.Rpt, opts, log)
}

// CodePage looks up IANA character set name. Unknown names are reported and
// ignored.
func CodePage(name string, log *zap.Logger) encoding.Encoding {
	if len(name) == 0 {
		return nil
	}
	cp, err := ianaindex.IANA.Encoding(name)
	if err != nil || cp == nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", name), zap.Error(err))
		return nil
	}
	n, _ := ianaindex.IANA.Name(cp)
	log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
	return cp
}

type options struct {
	overwrite    bool
	codePage     encoding.Encoding
	nameTemplate string
}

// process prepares book at src into dst/<output name>. Documents which could not
// be prepared are reported and copied unchanged, so the output is always
// complete.
func process(ctx context.Context, src, dst string, pre *preprocess.Preprocessor, rpt *config.Report, opts options, log *zap.Logger) (err error) {
	source, err := book.Open(src, opts.codePage)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(source))

	b, err := source.Book()
	if err != nil {
		return err
	}
	if b.Len() == 0 {
		return fmt.Errorf("no documents found in book source (%s)", src)
	}

	name, err := outputName(opts.nameTemplate, b, src)
	if err != nil {
		return err
	}
	out := filepath.Join(dst, name)
	if _, err := os.Stat(out); err == nil {
		if !opts.overwrite {
			return fmt.Errorf("output directory already exists: %s", out)
		}
		log.Warn("Overwriting existing directory", zap.String("dir", out))
		if err := os.RemoveAll(out); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	docs := make(map[string]book.DocumentRef, b.Len())
	for _, ref := range b.Documents {
		docs[ref.Path] = ref
	}

	var prepared, copied int
	err = fs.WalkDir(source.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		target := filepath.Join(out, filepath.FromSlash(p))

		ref, ok := docs[p]
		if !ok {
			if err := copyFile(source.FS, p, target); err != nil {
				return fmt.Errorf("unable to copy resource (%s): %w", p, err)
			}
			copied++
			return nil
		}

		if err := prepareDocument(source.FS, ref, target, pre, rpt); err != nil {
			log.Error("Unable to prepare document, copying as is", zap.String("path", p), zap.Error(err))
			if err := copyFile(source.FS, p, target); err != nil {
				return fmt.Errorf("unable to copy document (%s): %w", p, err)
			}
			copied++
			return nil
		}
		prepared++
		return nil
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode book manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(out, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("unable to write book manifest: %w", err)
	}
	rpt.StoreData(ManifestName, data)

	log.Info("Book prepared", zap.String("id", b.ID), zap.Int("documents", prepared), zap.Int("copied", copied), zap.String("to", out))
	return nil
}

func prepareDocument(fsys fs.FS, ref book.DocumentRef, target string, pre *preprocess.Preprocessor, rpt *config.Report) error {
	data, err := fs.ReadFile(fsys, ref.Path)
	if err != nil {
		return err
	}
	doc := pre.Process(data, ref)
	markup, err := doc.Markup()
	if err != nil {
		return err
	}
	rpt.StoreData(path.Join("outline", ref.Path+".txt"), []byte(doc.Outline()))

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(markup), 0644)
}

func copyFile(fsys fs.FS, name, target string) (err error) {
	in, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(out))

	_, err = io.Copy(out, in)
	return err
}
