package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sealwire/directory"
	"sealwire/engine"
	"sealwire/store"
)

var (
	logger   = logrus.New()
	redisURL string
)

func main() {
	root := &cobra.Command{
		Use:   "sealwire",
		Short: "Identity and safety-number tooling for the sealwire protocol engine",
	}
	root.PersistentFlags().StringVar(&redisURL, "redis", "localhost:6379", "address of the Redis instance backing the key store and directory")
	root.AddCommand(initCmd(), fingerprintCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newEngine(userID string) (*engine.Engine, error) {
	client := redis.NewClient(&redis.Options{Addr: redisURL})
	e := engine.New(store.NewRedisStore(client), directory.NewRedisDirectory(client), nil, logger)
	if err := e.Initialize(context.Background(), userID); err != nil {
		return nil, err
	}
	return e, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <userID>",
		Short: "Bootstrap or resume a local identity and publish its public material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			if _, err := newEngine(userID); err != nil {
				return err
			}
			fmt.Printf("identity ready for %s\n", userID)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <userID> <remoteUserID>",
		Short: "Print the safety number between two published identities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(args[0])
			if err != nil {
				return err
			}
			number, err := e.SafetyNumber(context.Background(), args[1])
			if err != nil {
				return err
			}
			fmt.Println(number)
			return nil
		},
	}
}
