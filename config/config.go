package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	AWS         AWSConfig
	DynamoDB    DynamoDBConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Server      ServerConfig
	Season      SeasonConfig
	War         WarConfig
	Matchmaking MatchmakingConfig
	Tournament  TournamentConfig
	Rating      RatingConfig
	Lock        LockConfig
	Scheduler   SchedulerConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	UseLocalEndpoint bool
}

type RedisConfig struct {
	Address  string
	Password string
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type ServerConfig struct {
	Environment string
	LogLevel    string
}

type SeasonConfig struct {
	LengthWeeks int
}

type WarConfig struct {
	MaxWarsPerWeek int
	CooldownHours  int
}

type MatchmakingConfig struct {
	AllowAdjacentTiers bool
	MaxPowerGapPercent float64
}

type TournamentConfig struct {
	Enabled            bool
	GenerationWeekday  int // time.Weekday: 0 = Sunday
	GenerationHour     int
	MinParticipants    int
	MatchingPreference string
}

type RatingConfig struct {
	StaleAfterMinutes int
}

type LockConfig struct {
	TTLSeconds int
}

type SchedulerConfig struct {
	PhaseIntervalMinutes      int
	TournamentIntervalMinutes int
	RatingIntervalMinutes     int
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configPath)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WARSEASON")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("season.lengthweeks", 4)
	viper.SetDefault("war.maxwarsperweek", 3)
	viper.SetDefault("war.cooldownhours", 24)
	viper.SetDefault("matchmaking.allowadjacenttiers", true)
	viper.SetDefault("matchmaking.maxpowergappercent", 0.35)
	viper.SetDefault("tournament.enabled", true)
	viper.SetDefault("tournament.generationweekday", 4) // Thursday
	viper.SetDefault("tournament.generationhour", 23)
	viper.SetDefault("tournament.minparticipants", 2)
	viper.SetDefault("tournament.matchingpreference", "power_rating")
	viper.SetDefault("rating.staleafterminutes", 360)
	viper.SetDefault("lock.ttlseconds", 360)
	viper.SetDefault("scheduler.phaseintervalminutes", 60)
	viper.SetDefault("scheduler.tournamentintervalminutes", 60)
	viper.SetDefault("scheduler.ratingintervalminutes", 5)
}
