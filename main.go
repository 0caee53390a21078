package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Ethernal-Tech/algorand-infrastructure/client"
	"github.com/Ethernal-Tech/algorand-infrastructure/logger"
	"github.com/Ethernal-Tech/algorand-infrastructure/secrets"
	secretshelper "github.com/Ethernal-Tech/algorand-infrastructure/secrets/helper"
	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber/db"
	"github.com/hashicorp/go-hclog"
)

func startSubscriber(ctx context.Context, baseDirectory string) error {
	algodURL := os.Getenv("ALGOD_URL")
	if algodURL == "" {
		algodURL = "http://localhost:4001"
	}

	indexerURL := os.Getenv("INDEXER_URL")
	if indexerURL == "" {
		indexerURL = "http://localhost:8980"
	}

	lg, err := logger.NewLogger(logger.LoggerConfig{
		LogLevel:      hclog.Debug,
		JSONLogFormat: false,
		AppendFile:    true,
		LogFilePath:   filepath.Join(baseDirectory, "logs"),
	})
	if err != nil {
		return err
	}

	secretsManager, err := secretshelper.SetupLocalSecretsManager(baseDirectory)
	if err != nil {
		return err
	}

	store, err := db.NewWatermarkStoreInit("", filepath.Join(baseDirectory, "watermark.db"))
	if err != nil {
		return err
	}

	defer store.Close()

	minPayment := uint64(1_000_000)

	config := &subscriber.SubscriptionConfig{
		Filters: []subscriber.NamedFilter{
			{
				Name: "large-payments",
				Filter: subscriber.Filter{
					Type:      subscriber.TxTypePayment,
					MinAmount: &minPayment,
				},
			},
			{
				Name: "usdc-transfers",
				Filter: subscriber.Filter{
					Type:    subscriber.TxTypeAssetTransfer,
					AssetID: uint64Ptr(31566704),
				},
			},
		},
		SyncBehaviour:         subscriber.CatchupWithHistory,
		Frequency:             time.Second * 3,
		WaitForBlockWhenAtTip: true,
		WatermarkStore:        store,
	}

	sub, err := subscriber.NewSubscriber(
		config,
		client.NewAlgodClient(algodURL,
			secretshelper.GetAPIToken(secretsManager, secrets.AlgodToken), lg.Named("algod")),
		client.NewIndexerClient(indexerURL,
			secretshelper.GetAPIToken(secretsManager, secrets.IndexerToken), lg.Named("indexer")),
		lg.Named("subscriber"),
	)
	if err != nil {
		return err
	}

	sub.OnBatch("large-payments", func(payload interface{}) error {
		batch := payload.(*subscriber.FilterResult) //nolint:forcetypeassert

		lg.Info("Payments batch", "count", len(batch.Transactions))

		return nil
	})

	sub.OnTransaction("large-payments", func(payload interface{}) error {
		tx := payload.(*subscriber.Transaction) //nolint:forcetypeassert

		lg.Info("Payment", "id", tx.ID, "round", tx.ConfirmedRound,
			"sender", tx.Sender, "amount", tx.Payment.Amount)

		return nil
	})

	sub.OnTransaction("usdc-transfers", func(payload interface{}) error {
		tx := payload.(*subscriber.Transaction) //nolint:forcetypeassert

		lg.Info("USDC transfer", "id", tx.ID, "round", tx.ConfirmedRound)

		return nil
	})

	sub.OnPoll(func(payload interface{}) error {
		result := payload.(*subscriber.PollResult) //nolint:forcetypeassert

		lg.Info("Poll done", "range", result.SyncedRoundRange,
			"watermark", result.NewWatermark, "tip", result.CurrentRound)

		return nil
	})

	sub.OnError(func(payload interface{}) error {
		lg.Error("Subscriber error", "err", payload)

		return nil
	})

	go func() {
		<-ctx.Done()
		sub.Stop("shutdown")
	}()

	defer sub.Close()

	return sub.Start(ctx)
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func main() {
	baseDirectory, err := os.MkdirTemp("", "algorand-subscriber")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	defer os.RemoveAll(baseDirectory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChannel := make(chan os.Signal, 1)
	// Notify the signalChannel when the interrupt signal is received (Ctrl+C)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChannel
		cancel()
	}()

	if err := startSubscriber(ctx, baseDirectory); err != nil {
		fmt.Println("subscriber error", err)
		os.Exit(1)
	}
}
