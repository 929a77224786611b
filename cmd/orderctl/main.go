// Command orderctl управляет заказами в файловом хранилище киоска.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/numbering"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/orders"
	"github.com/vladislavdragonenkov/foodtruck/internal/storage/file"
)

const (
	envStorageDir   = "FOODTRUCK_STORAGE_DIR"
	envKafkaBrokers = "KAFKA_BROKERS"
	envKafkaTopic   = "FOODTRUCK_KAFKA_TOPIC"

	defaultStorageDir = "./data"
	defaultWatchGroup = "foodtruck-orderctl"
)

type envLookup func(string) (string, bool)

var errUsage = errors.New("usage: orderctl [-dir DIR] <next|peek|list|stats|show|advance|cancel|status|track|watch> [args]")

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "orderctl: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, lookup envLookup, out io.Writer) error {
	fs := flag.NewFlagSet("orderctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.String("dir", envOrDefault(lookup, envStorageDir, defaultStorageDir), "storage directory (fallback: "+envStorageDir+")")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	command, cmdArgs := rest[0], rest[1:]

	if command == "watch" {
		return watch(ctx, cmdArgs, lookup, out)
	}

	store, err := file.Open(*dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	logger := log.WithField("component", "orderctl")
	repo := orders.NewRepository(store, logger.WithField("component", "orders-repository"))
	numbers := numbering.NewAuthority(store, logger.WithField("component", "numbering"))
	svc := lifecycle.NewService(repo, numbers, nil, nil, logger)

	return execute(svc, numbers, command, cmdArgs, out)
}

// execute выполняет команду над сервисом заказов и печатает результат.
func execute(svc *lifecycle.Service, numbers *numbering.Authority, command string, args []string, out io.Writer) error {
	switch command {
	case "next":
		return printLine(out, numbers.Next())
	case "peek":
		return printLine(out, svc.PeekNextNumber())
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		status := fs.String("status", "", "filter by status")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		list, err := svc.ListByStatus(domain.OrderStatus(strings.TrimSpace(*status)))
		if err != nil {
			return err
		}
		if list == nil {
			list = []domain.Order{}
		}
		return printJSON(out, list)
	case "stats":
		return printJSON(out, svc.Statistics())
	}

	arg, err := requireArgs(command, args)
	if err != nil {
		return err
	}

	var order domain.Order
	switch command {
	case "show":
		order, err = svc.Get(arg[0])
	case "advance":
		order, err = svc.Advance(arg[0])
	case "cancel":
		order, err = svc.Cancel(arg[0])
	case "status":
		order, err = svc.SetStatus(arg[0], domain.OrderStatus(strings.TrimSpace(arg[1])))
	case "track":
		order, err = svc.Track(arg[0])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if err != nil {
		return err
	}
	return printJSON(out, order)
}

func requireArgs(command string, args []string) ([]string, error) {
	want := 1
	switch command {
	case "status":
		want = 2
	case "show", "advance", "cancel", "track":
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if len(args) != want {
		return nil, fmt.Errorf("%w: %s expects %d argument(s)", errUsage, command, want)
	}
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("%w: %s arguments must not be empty", errUsage, command)
		}
	}
	return args, nil
}

// watch печатает события заказов из Kafka, пока не отменён контекст.
func watch(ctx context.Context, args []string, lookup envLookup, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	brokersRaw := fs.String("brokers", envOrDefault(lookup, envKafkaBrokers, ""), "comma separated kafka brokers (fallback: "+envKafkaBrokers+")")
	topic := fs.String("topic", envOrDefault(lookup, envKafkaTopic, kafka.TopicOrderEvents), "order events topic")
	group := fs.String("group", defaultWatchGroup, "consumer group id")
	deadLetter := fs.Bool("dlq", false, "move undecodable events to "+kafka.TopicOrderEventsDLQ)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	brokers := kafka.ParseBrokers(*brokersRaw)
	if len(brokers) == 0 {
		return fmt.Errorf("%w: watch requires -brokers or %s", errUsage, envKafkaBrokers)
	}

	cfg := kafka.ConsumerConfig{
		Brokers: brokers,
		GroupID: *group,
		Topics:  []string{*topic},
	}
	if *deadLetter {
		producer, err := kafka.NewProducer(brokers, log.WithField("component", "orderctl-dlq"))
		if err != nil {
			return err
		}
		defer producer.Close()
		cfg.DLQ = producer
	}

	consumer, err := kafka.NewConsumer(cfg, eventPrinter(out))
	if err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return consumer.Stop()
}

// eventPrinter возвращает обработчик, печатающий одну строку на событие.
func eventPrinter(out io.Writer) kafka.MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		event, err := kafka.ParseOrderEvent(message)
		if err != nil {
			return err
		}
		return printLine(out, formatEvent(event))
	}
}

func formatEvent(event domain.OrderEvent) string {
	line := fmt.Sprintf("%s %s %s %s", event.Occurred.Format("15:04:05"), event.Number, event.Type, event.Status)
	if event.PreviousStatus != "" {
		line += " (from " + string(event.PreviousStatus) + ")"
	}
	return line + " id=" + event.OrderID
}

func printLine(out io.Writer, line string) error {
	_, err := fmt.Fprintln(out, line)
	return err
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func envOrDefault(lookup envLookup, key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
