package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/service/crypt"
	"github.com/kawilabs/go-kawi/service/ledger"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist/postgres"
	"github.com/kawilabs/go-kawi/service/pinata"
	sentryutil "github.com/kawilabs/go-kawi/service/sentry"
	"github.com/kawilabs/go-kawi/validate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Clients holds every external dependency the HTTP handlers need. It is
// built once at startup and shared read-only.
type Clients struct {
	OfferRepo     *postgres.OfferRepository
	LaunchpadRepo *postgres.LaunchpadRepository
	Mirror        *mirror.Client
	Ledger        *ledger.Client
	Codec         *crypt.Codec
	Pinata        *pinata.Client
	IPFS          *shell.Shell
}

// Init initializes the server
func Init() {
	setDefaults()

	sentryutil.Init()

	router := CoreInit(NewClients())

	http.Handle("/", router)
}

// CoreInit initializes core server functionality. This is abstracted
// so the test server can also utilize it
func CoreInit(clients *Clients) *gin.Engine {
	logger.For(nil).Info("initializing server...")

	if env.GetString("ENV") != "production" {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate.RegisterCustomValidators(v)
	}

	return HandlersInit(gin.Default(), clients)
}

// NewClients builds the shared dependency set from the environment
func NewClients() *Clients {
	httpClient := &http.Client{Timeout: 0}

	ledgerClient, err := ledger.NewClient()
	if err != nil {
		panic(err)
	}

	return &Clients{
		OfferRepo:     postgres.NewOfferRepository(postgres.MustCreateClient()),
		LaunchpadRepo: postgres.NewLaunchpadRepository(postgres.NewPgxClient()),
		Mirror:        mirror.NewClient(httpClient),
		Ledger:        ledgerClient,
		Codec:         crypt.NewCodec(env.MustGetString("CRYPTO_KEY")),
		Pinata:        pinata.NewClient(httpClient),
		IPFS:          shell.NewShell(env.GetString("IPFS_API_URL")),
	}
}

func setDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("POSTGRES_HOST", "0.0.0.0")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "kawi_backend")
	viper.SetDefault("POSTGRES_PASSWORD", "")
	viper.SetDefault("POSTGRES_DB", "postgres")
	viper.SetDefault("POSTGRES_MAX_OPEN_CONNS", 25)
	viper.SetDefault("HEDERA_NETWORK", "testnet")
	viper.SetDefault("HEDERA_BATCH_INTERVAL_MS", 2000)
	viper.SetDefault("MIRROR_NODE_URL", "https://testnet.mirrornode.hedera.com")
	viper.SetDefault("IPFS_API_URL", "https://ipfs.infura.io:5001")
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)
	viper.SetDefault("SENTRY_DEBUG", false)

	viper.AutomaticEnv()
}
