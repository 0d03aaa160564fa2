// Binary airanalysis analyzes an air purifier dataset of oxygen concentration
// and AQI readings. It prints descriptive statistics, renders charts and
// exports the summary to Google Sheets, an MQTT broker and InfluxDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/mtraver/envtools"
	cron "github.com/robfig/cron/v3"

	"github.com/mtraver/air-quality-analysis/analysis"
	"github.com/mtraver/air-quality-analysis/credentials"
	"github.com/mtraver/air-quality-analysis/export"
	"github.com/mtraver/air-quality-analysis/observation"
	"github.com/mtraver/air-quality-analysis/timeline"
)

const (
	influxTokenEnv = "INFLUXDB_TOKEN"
	s3AccessKeyEnv = "S3_ACCESS_KEY"
	s3SecretKeyEnv = "S3_SECRET_KEY"
)

// Flags.
var (
	columns string
	outDir  string
	cadence time.Duration

	spreadsheet   string
	worksheet     string
	credsPath     string
	credsSecret   string
	secretsRegion string

	mqttBroker   string
	mqttTopic    string
	mqttClientID string

	influxURL    string
	influxOrg    string
	influxBucket string

	redisAddr string
	redisDB   int
	redisKey  string

	s3Endpoint string
	s3Bucket   string
	s3Secure   bool

	cronSpec string
	watch    bool
	envFile  string
)

func init() {
	flag.StringVar(&columns, "columns", "", "order of the dataset's two columns, either \"oxygen,aqi\" or \"aqi,oxygen\"")
	flag.StringVar(&outDir, "out", ".", "directory in which to save charts; empty to skip charts")
	flag.DurationVar(&cadence, "cadence", time.Minute, "width of the resampling buckets")

	flag.StringVar(&spreadsheet, "sheet", "", "name of a Google Sheets spreadsheet to export the summary to")
	flag.StringVar(&worksheet, "worksheet", export.DefaultWorksheet, "worksheet within the spreadsheet")
	flag.StringVar(&credsPath, "creds", "", "path to a service account key file")
	flag.StringVar(&credsSecret, "creds-secret", "", "name of an AWS Secrets Manager secret holding a service account key")
	flag.StringVar(&secretsRegion, "creds-region", "", "AWS region of the secret given by -creds-secret")

	flag.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker to publish the summary to, e.g. tcp://localhost:1883")
	flag.StringVar(&mqttTopic, "mqtt-topic", "air-purifier/summary", "MQTT topic on which to publish the summary")
	flag.StringVar(&mqttClientID, "mqtt-client-id", "airanalysis", "MQTT client ID")

	flag.StringVar(&influxURL, "influx-url", "", "InfluxDB server to write the resampled series to.\nThe token is read from "+influxTokenEnv+".")
	flag.StringVar(&influxOrg, "influx-org", "", "InfluxDB organization")
	flag.StringVar(&influxBucket, "influx-bucket", "air_quality", "InfluxDB bucket")

	flag.StringVar(&redisAddr, "redis-addr", "", "Redis server to store the summary in, e.g. localhost:6379")
	flag.IntVar(&redisDB, "redis-db", 0, "Redis database number")
	flag.StringVar(&redisKey, "redis-key", "air-purifier:summary", "Redis hash key for the summary")

	flag.StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible server to upload charts to, e.g. localhost:9000.\nKeys are read from "+s3AccessKeyEnv+" and "+s3SecretKeyEnv+".")
	flag.StringVar(&s3Bucket, "s3-bucket", "air-quality-charts", "bucket to upload charts to")
	flag.BoolVar(&s3Secure, "s3-secure", true, "use TLS to talk to the S3-compatible server")

	flag.StringVar(&cronSpec, "cronspec", "", "cron spec that specifies when to re-run the analysis")
	flag.BoolVar(&watch, "watch", false, "re-run the analysis whenever the dataset file changes")
	flag.StringVar(&envFile, "env", ".env", "file of environment variables to load, if it exists")

	flag.Usage = func() {
		message := `usage: airanalysis -columns order [options] dataset

Positional Arguments (required):
  dataset
	path to an .xlsx or .csv file with a header row and two numeric columns

Options:
`

		fmt.Fprint(flag.CommandLine.Output(), message)
		flag.PrintDefaults()
	}
}

func parseFlags() (string, observation.ColumnOrder, error) {
	flag.Parse()

	if len(flag.Args()) != 1 {
		return "", observation.ColumnOrder{}, fmt.Errorf("exactly one dataset must be given")
	}

	if columns == "" {
		return "", observation.ColumnOrder{}, fmt.Errorf("columns flag must be given")
	}
	order, err := observation.ParseColumnOrder(columns)
	if err != nil {
		return "", observation.ColumnOrder{}, err
	}

	if credsSecret != "" && secretsRegion == "" {
		return "", observation.ColumnOrder{}, fmt.Errorf("creds-region flag must be given with creds-secret")
	}

	if s3Endpoint != "" && outDir == "" {
		return "", observation.ColumnOrder{}, fmt.Errorf("out flag must not be empty with s3-endpoint")
	}

	if influxURL != "" && influxOrg == "" {
		return "", observation.ColumnOrder{}, fmt.Errorf("influx-org flag must be given with influx-url")
	}

	path, err := homedir.Expand(flag.Args()[0])
	if err != nil {
		return "", observation.ColumnOrder{}, err
	}

	return path, order, nil
}

// credentialSources lists where to look for Google credentials, most specific first.
func credentialSources() []credentials.Source {
	var sources []credentials.Source
	if credsPath != "" {
		sources = append(sources, credentials.FromFile(credsPath, export.SheetsScopes...))
	}
	if credsSecret != "" {
		sources = append(sources, credentials.FromSecretsManager(secretsRegion, credsSecret, export.SheetsScopes...))
	}
	return append(sources, credentials.Default(export.SheetsScopes...))
}

// checkEnv reports environment variables that a requested destination needs
// but that aren't set.
func checkEnv() error {
	var required []string
	if influxURL != "" {
		required = append(required, influxTokenEnv)
	}
	if s3Endpoint != "" {
		required = append(required, s3AccessKeyEnv, s3SecretKeyEnv)
	}

	for _, key := range required {
		if _, ok := os.LookupEnv(key); !ok {
			return fmt.Errorf("environment variable %s must be set", key)
		}
	}
	return nil
}

// buildRegistry sets up the destinations named by flags. A destination that
// can't be reached is logged and left out so the analysis still runs.
func buildRegistry(ctx context.Context, logger *log.Logger) (*export.Registry, func()) {
	registry := export.NewRegistry()

	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if spreadsheet != "" {
		s := export.NewSheets(spreadsheet, credentials.First(credentialSources()...))
		s.Worksheet = worksheet
		registry.Register("sheets", s)
	}

	if mqttBroker != "" {
		client, err := export.DialMQTT(mqttBroker, mqttClientID, os.Getenv("MQTT_USERNAME"), os.Getenv("MQTT_PASSWORD"))
		if err != nil {
			logger.Printf("Failed to set up MQTT export, skipping it: %v", err)
		} else {
			closers = append(closers, func() { client.Disconnect(250) })
			registry.Register("mqtt", export.NewMQTT(client, mqttTopic))
		}
	}

	if redisAddr != "" {
		client, err := export.DialRedis(ctx, redisAddr, redisDB)
		if err != nil {
			logger.Printf("Failed to set up Redis export, skipping it: %v", err)
		} else {
			closers = append(closers, func() { client.Close() })
			registry.Register("redis", export.NewRedis(client, redisKey))
		}
	}

	if influxURL != "" {
		token := envtools.MustGetenv(influxTokenEnv)
		registry.RegisterSink("influxdb", export.NewInfluxDB(influxURL, token, influxOrg, influxBucket))
	}

	if s3Endpoint != "" {
		client, err := export.NewMinioClient(s3Endpoint, envtools.MustGetenv(s3AccessKeyEnv), envtools.MustGetenv(s3SecretKeyEnv), s3Secure)
		if err != nil {
			logger.Printf("Failed to set up chart upload, skipping it: %v", err)
		} else {
			registry.RegisterFileSink("s3", export.NewObjectStore(client, s3Bucket))
		}
	}

	return registry, cleanup
}

func run(ctx context.Context, a *analysis.Analyzer) {
	res, err := a.Run(ctx, timeline.StartOfDay(time.Now()))
	if err != nil {
		log.Printf("Failed to analyze dataset: %v", err)
		return
	}
	if res.Failures != nil {
		log.Printf("Analysis finished with errors: %v", res.Failures)
		return
	}
	log.Printf("Analysis finished: %d observations, %d bins, %d charts", res.Observations, len(res.Bins), len(res.Charts))
}

func main() {
	path, order, err := parseFlags()
	if err != nil {
		fmt.Printf("argument error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load %s: %v", envFile, err)
	}
	if err := checkEnv(); err != nil {
		fmt.Printf("argument error: %v\n", err)
		os.Exit(2)
	}

	if outDir != "" {
		if outDir, err = homedir.Expand(outDir); err != nil {
			log.Fatalf("Failed to expand output dir: %v", err)
		}
		// Charts will fail and be reported; the statistics still print.
		if err := os.MkdirAll(outDir, 0755); err != nil {
			log.Printf("Failed to make dir %s: %v", outDir, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, cleanup := buildRegistry(ctx, log.Default())
	defer cleanup()
	log.Printf("Sending results to %d destinations", registry.Len())

	a := analysis.New(analysis.Config{
		Path:    path,
		Columns: order,
		OutDir:  outDir,
		Cadence: cadence,
	}, registry, log.Default(), os.Stdout)

	run(ctx, a)

	if cronSpec == "" && !watch {
		return
	}

	if cronSpec != "" {
		cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		log.Printf("Starting cron scheduler with spec %q", cronSpec)
		if _, err := cr.AddFunc(cronSpec, func() { run(ctx, a) }); err != nil {
			log.Fatalf("Failed to schedule analysis: %v", err)
		}
		cr.Start()
		defer cr.Stop()
	}

	if watch {
		w, err := newDatasetWatcher(path)
		if err != nil {
			log.Fatalf("Failed to watch %s: %v", path, err)
		}
		defer w.Close()

		log.Printf("Watching %s for changes", path)
		go func() {
			for range w.Changes() {
				run(ctx, a)
			}
		}()
	}

	<-ctx.Done()
	log.Println("Cleaning up...")
}
