// Command dlq-reprocess возвращает события заказов из DLQ в исходный topic.
// По умолчанию работает в режиме dry-run и только показывает кандидатов.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/messaging/kafka"
)

const (
	defaultLimit       = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "KAFKA_BROKERS"
)

type options struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type summary struct {
	Scanned  int
	Replayed int
	Skipped  int
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		exitf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := newSaramaSource(opts.brokers)
	if err != nil {
		exitf("%v", err)
	}
	defer source.Close()

	var sink sarama.SyncProducer
	if opts.execute {
		if sink, err = newReplayProducer(opts.brokers); err != nil {
			exitf("%v", err)
		}
		defer sink.Close()
	}

	r := &replayer{source: source, sink: sink, opts: opts, logger: log.WithField("component", "dlq-reprocess")}
	result, err := r.run(ctx)
	printSummary(os.Stdout, opts, result)
	if err != nil {
		exitf("dlq replay failed: %v", err)
	}
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	opts := options{}
	var brokers string

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&brokers, "brokers", "", "comma separated kafka brokers (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&opts.sourceTopic, "source-topic", kafka.TopicOrderEventsDLQ, "DLQ topic to scan")
	fs.StringVar(&opts.targetTopic, "target-topic", kafka.TopicOrderEvents, "topic for entries without original_topic")
	fs.IntVar(&opts.limit, "limit", defaultLimit, "max DLQ messages to scan")
	fs.BoolVar(&opts.execute, "execute", false, "publish entries instead of listing them")
	fs.BoolVar(&opts.fromNewest, "from-newest", false, "scan the newest messages of each partition")
	fs.DurationVar(&opts.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this long without messages")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if strings.TrimSpace(brokers) == "" && getenv != nil {
		brokers = getenv(envKafkaBrokers)
	}
	opts.brokers = kafka.ParseBrokers(brokers)
	opts.sourceTopic = strings.TrimSpace(opts.sourceTopic)
	opts.targetTopic = strings.TrimSpace(opts.targetTopic)

	switch {
	case len(opts.brokers) == 0:
		return opts, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers)
	case opts.sourceTopic == "":
		return opts, errors.New("source-topic is required")
	case opts.targetTopic == "":
		return opts, errors.New("target-topic is required")
	case opts.sourceTopic == opts.targetTopic:
		return opts, errors.New("source-topic and target-topic must differ")
	case opts.limit <= 0:
		return opts, errors.New("limit must be > 0")
	case opts.idleTimeout <= 0:
		return opts, errors.New("idle-timeout must be > 0")
	}
	return opts, nil
}

// replayer читает DLQ и публикует восстановленные события через sink; без sink только логирует.
type replayer struct {
	source dlqSource
	sink   sarama.SyncProducer
	opts   options
	logger *log.Entry
}

func (r *replayer) run(ctx context.Context) (summary, error) {
	var total summary

	partitions, err := r.source.Partitions(r.opts.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("list partitions of %s: %w", r.opts.sourceTopic, err)
	}
	slices.Sort(partitions)

	for _, partition := range partitions {
		budget := r.opts.limit - total.Scanned
		if budget <= 0 {
			break
		}

		oldest, newest, err := r.source.Bounds(r.opts.sourceTopic, partition)
		if err != nil {
			return total, fmt.Errorf("offsets of partition %d: %w", partition, err)
		}
		from, to := scanRange(oldest, newest, budget, r.opts.fromNewest)
		if from >= to {
			continue
		}

		err = r.source.Read(ctx, r.opts.sourceTopic, partition, from, to, r.opts.idleTimeout, func(msg *sarama.ConsumerMessage) error {
			total.Scanned++
			replayed, err := r.replay(msg)
			if err != nil {
				return err
			}
			if replayed {
				total.Replayed++
			} else {
				total.Skipped++
			}
			return nil
		})
		if err != nil {
			return total, err
		}
	}

	r.logger.WithFields(log.Fields{
		"scanned":  total.Scanned,
		"replayed": total.Replayed,
		"skipped":  total.Skipped,
		"execute":  r.opts.execute,
	}).Info("dlq replay finished")
	return total, nil
}

// scanRange ограничивает [oldest, newest) бюджетом сообщений: с начала или с конца партиции.
func scanRange(oldest, newest int64, budget int, fromNewest bool) (int64, int64) {
	if newest <= oldest {
		return oldest, oldest
	}
	if fromNewest {
		return max(oldest, newest-int64(budget)), newest
	}
	return oldest, min(newest, oldest+int64(budget))
}

// replay возвращает false для пропущенных сообщений; ошибка публикации прерывает проход.
func (r *replayer) replay(msg *sarama.ConsumerMessage) (bool, error) {
	out, err := replayMessage(msg.Value, r.opts.targetTopic)
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip dlq message")
		return false, nil
	}

	if r.sink == nil {
		r.logger.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"topic":     out.Topic,
		}).Info("dlq replay candidate")
		return true, nil
	}

	if _, _, err := r.sink.SendMessage(out); err != nil {
		return false, fmt.Errorf("republish offset %d of partition %d: %w", msg.Offset, msg.Partition, err)
	}
	return true, nil
}

func replayMessage(raw []byte, fallbackTopic string) (*sarama.ProducerMessage, error) {
	entry, err := kafka.DecodeDLQEntry(raw)
	if err != nil {
		return nil, err
	}
	return entry.ReplayMessage(fallbackTopic)
}

func printSummary(w io.Writer, opts options, s summary) {
	mode := "dry-run"
	if opts.execute {
		mode = "execute"
	}
	_, _ = fmt.Fprintf(w, "%s %s: scanned=%d replayed=%d skipped=%d\n", mode, opts.sourceTopic, s.Scanned, s.Replayed, s.Skipped)
}

func exitf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "dlq-reprocess: "+format+"\n", args...)
	os.Exit(1)
}
