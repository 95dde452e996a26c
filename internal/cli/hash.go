package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/layer-3/jwtgate/adapters/hasher"
	"github.com/layer-3/jwtgate/adapters/store"
)

var hashFlags struct {
	rounds int
	check  bool
}

var hashCmd = &cobra.Command{
	Use:   "hash PASSWORD|USERS_FILE",
	Short: "Hash a password or every password of a users file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHash(cmd.OutOrStdout(), args[0], hashFlags.rounds, hashFlags.check)
	},
}

func init() {
	hashCmd.Flags().IntVarP(&hashFlags.rounds, "rounds", "r", hasher.DefaultCost, "bcrypt cost")
	hashCmd.Flags().BoolVar(&hashFlags.check, "check", false, "verify the generated hashes against the file")

	rootCmd.AddCommand(hashCmd)
}

func runHash(out io.Writer, arg string, rounds int, check bool) error {
	data, err := os.ReadFile(arg)
	if errors.Is(err, fs.ErrNotExist) {
		// No such file, so the argument is the password itself.
		h, err := hasher.Hash(arg, rounds)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, h)
		return err
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", arg, err)
	}

	users, err := store.ParseUsers(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", arg, err)
	}

	hashed := make(map[string]store.UserEntry, len(users))
	for name, u := range users {
		h, err := hasher.Hash(u.Password, rounds)
		if err != nil {
			return fmt.Errorf("hash %s: %w", name, err)
		}
		hashed[name] = store.UserEntry{Password: h, Scope: u.Scope}
	}

	if !check {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hashed)
	}

	var bc hasher.Bcrypt
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !bc.Compare(hashed[name].Password, users[name].Password) {
			fmt.Fprintf(out, "[%s] mismatch\n", name)
		}
	}
	_, err = fmt.Fprintln(out, "check done")
	return err
}
