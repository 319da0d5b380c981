package mysql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BarkinBalci/attribution-relay/internal/config"
)

// Client wraps the gorm MySQL connection
type Client struct {
	db     *gorm.DB
	config *config.MySQL
	log    *zap.Logger
}

// NewClient creates a new MySQL client with the given configuration
func NewClient(ctx context.Context, config *config.MySQL, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to MySQL",
		zap.String("host", config.Host),
		zap.String("port", config.Port),
		zap.String("database", config.Database))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		config.User, config.Password, config.Host, config.Port, config.Database)

	db, err := gorm.Open(
		mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: 256,
		}),
		&gorm.Config{
			PrepareStmt: true,
			Logger:      logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		log.Error("Failed to connect to MySQL", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", zap.Error(err))
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	log.Info("MySQL connection established successfully")

	return &Client{db: db, config: config, log: log}, nil
}

// DB returns the underlying gorm handle
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the MySQL connection
func (c *Client) Close() error {
	c.log.Info("Closing MySQL connection")
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.log.Error("Error closing MySQL connection", zap.Error(err))
		return err
	}
	c.log.Info("MySQL connection closed successfully")
	return nil
}
