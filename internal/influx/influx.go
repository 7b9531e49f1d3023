// Package influx ships engine samples to InfluxDB. When the server cannot be
// reached the samples go to a gzipped line-protocol file instead, which can be
// replayed with the influx CLI later.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Retention applied to a bucket the manager creates.
const bucketRetention = 30 * 24 * time.Hour

var ErrNoSink = errors.New("influx: not connected")

// Options locates the InfluxDB server and the backup file.
type Options struct {
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// OptionsFromViper reads the influx.* keys.
func OptionsFromViper(backupPath string) Options {
	return Options{
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port")),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: backupPath,
	}
}

type sink interface {
	write(p *influxdb2_write.Point) error
	close() error
}

// Manager owns whichever sink Connect settled on.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu   sync.Mutex
	sink sink
}

// New returns a manager with no sink; call Connect before writing.
func New(opts Options, log zerolog.Logger) *Manager {
	return &Manager{opts: opts, log: log.With().Str("component", "influx").Logger()}
}

// Online reports whether points go to the server rather than the backup file.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sink.(*serverSink)
	return ok
}

// Connect pings the server and prepares its org and bucket. If the server is
// down it opens the backup file instead; only a backup failure is an error.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink != nil {
		return nil
	}

	client := influxdb2.NewClientWithOptions(m.opts.URL, m.opts.Token,
		influxdb2.DefaultOptions().SetBatchSize(500).SetFlushInterval(1000))
	up, err := client.Ping(ctx)
	if err == nil && !up {
		err = errors.New("server not ready")
	}
	if err == nil {
		if err = m.ensureBucket(ctx, client); err == nil {
			m.sink = newServerSink(client, m.opts, m.log)
			m.log.Info().Str("url", m.opts.URL).Str("bucket", m.opts.Bucket).Msg("InfluxDB connected")
			return nil
		}
	}
	client.Close()
	m.log.Warn().Err(err).Str("backupPath", m.opts.BackupPath).Msg("InfluxDB unreachable, writing to backup file")

	if m.opts.BackupPath == "" {
		return fmt.Errorf("influx unreachable and no backup path: %w", err)
	}
	b, berr := openBackup(m.opts.BackupPath)
	if berr != nil {
		return berr
	}
	m.sink = b
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context, client influxdb2.Client) error {
	orgs := client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.opts.Org)
	if err != nil {
		m.log.Info().Str("org", m.opts.Org).Msg("Creating organization")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.opts.Org); err != nil {
			return fmt.Errorf("creating org %s: %w", m.opts.Org, err)
		}
	}

	buckets := client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.opts.Bucket); err == nil {
		return nil
	}
	m.log.Info().Str("bucket", m.opts.Bucket).Msg("Creating bucket")
	expire := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, m.opts.Bucket, domain.RetentionRule{
		Type:         &expire,
		EverySeconds: int64(bucketRetention / time.Second),
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.opts.Bucket, err)
	}
	return nil
}

// NewPoint builds a point with the given tags and fields.
func NewPoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(measurement, tags, fields, at)
}

// WritePoint queues p on the active sink.
func (m *Manager) WritePoint(p *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink == nil {
		return ErrNoSink
	}
	return m.sink.write(p)
}

// Close flushes and releases the sink. Later calls are no-ops.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink == nil {
		return nil
	}
	err := m.sink.close()
	m.sink = nil
	return err
}

type serverSink struct {
	client influxdb2.Client
	api    influxdb2_api.WriteAPI
}

func newServerSink(client influxdb2.Client, opts Options, log zerolog.Logger) *serverSink {
	api := client.WriteAPI(opts.Org, opts.Bucket)
	go func() {
		for err := range api.Errors() {
			log.Error().Err(err).Str("bucket", opts.Bucket).Msg("InfluxDB write failed")
		}
	}()
	return &serverSink{client: client, api: api}
}

func (s *serverSink) write(p *influxdb2_write.Point) error {
	s.api.WritePoint(p)
	return nil
}

func (s *serverSink) close() error {
	s.api.Flush()
	s.client.Close()
	return nil
}

type backupSink struct {
	file *os.File
	gz   *gzip.Writer
}

func openBackup(path string) (*backupSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening influx backup: %w", err)
	}
	return &backupSink{file: f, gz: gzip.NewWriter(f)}, nil
}

func (b *backupSink) write(p *influxdb2_write.Point) error {
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	if _, err := b.gz.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("writing influx backup: %w", err)
	}
	return nil
}

func (b *backupSink) close() error {
	return errors.Join(b.gz.Close(), b.file.Close())
}
