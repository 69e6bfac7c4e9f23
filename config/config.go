package config

import (
	"fmt"
	"strings"

	"github.com/gomodule/redigo/redis"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const (
	DEVELOPMENT = "development"
	STAGING     = "staging"
	PRODUCTION  = "production"
)

type DBConf struct {
	Host     string `envconfig:"DB_HOST"`
	Port     int    `envconfig:"DB_PORT"`
	User     string `envconfig:"DB_USER"`
	Name     string `envconfig:"DB_NAME"`
	Password string `envconfig:"DB_PASS"`
}

type Configuration struct {
	AppName   string
	Env       string
	Port      int
	DBInfo    DBConf
	RedisHost string
	RedisPort int
	APIDomain string
	APPDomain string
}

type Services struct {
	Db        *gorm.DB
	RedisPool *redis.Pool
}

var configuration *Configuration
var services = &Services{}

// InitConf initializes logging and the configuration singleton. Env vars
// override DB settings given on flags, to keep secrets out of process args.
func InitConf(config *Configuration) error {
	if config.Env != DEVELOPMENT && config.Env != STAGING && config.Env != PRODUCTION {
		return fmt.Errorf("env [ %s ] not recognised", config.Env)
	}

	if err := envconfig.Process("marketpulse", &config.DBInfo); err != nil {
		log.WithError(err).Error("Failed to overlay env config on db conf.")
	}

	configuration = config
	initLogging()
	return nil
}

func initLogging() {
	// Log as JSON instead of the default ASCII formatter on deployments.
	if !IsDevelopment() {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	}
}

func InitDB(dbConf DBConf) error {
	db, err := gorm.Open("postgres", fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s password=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Name, dbConf.Password))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("Failed Db Initialization")
		return err
	}

	// Connection Pooling and Logging.
	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.LogMode(IsDevelopment())

	services.Db = db
	log.Info("Db Service initialized")
	return nil
}

func InitRedis(host string, port int) {
	services.RedisPool = &redis.Pool{
		MaxIdle:   20,
		MaxActive: 100,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
		},
	}
	log.Info("Redis Service initialized")
}

func GetConfig() *Configuration {
	return configuration
}

func GetServices() *Services {
	return services
}

// GetCacheRedisConnection returns a pooled redis connection. Caller must close.
func GetCacheRedisConnection() redis.Conn {
	return services.RedisPool.Get()
}

func IsDevelopment() bool {
	return configuration != nil && strings.Compare(configuration.Env, DEVELOPMENT) == 0
}
