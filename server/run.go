package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pview/book"
	"pview/prepare"
	"pview/state"
	"pview/store"
)

// Run is "serve" command: it hosts book from SOURCE until interrupted.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("serve")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Mailformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	if listen := cmd.String("listen"); len(listen) > 0 {
		env.Cfg.Server.Listen = listen
	}

	if err := env.LoadStylesheet(); err != nil {
		return err
	}
	root, err := env.StaticRoot()
	if err != nil {
		return err
	}

	source, err := book.Open(src, prepare.CodePage(cmd.String("force-zip-cp"), log))
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

	st, err := store.Open(env.Cfg.Server.Database, env.Log)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(st))

	return New(source, b, st, env.Preprocessor(root), env.Cfg, env.Rpt, env.Log).Run(ctx)
}
