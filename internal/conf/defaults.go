// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values for every setting.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "MediScan")
	v.SetDefault("main.log.default_level", "info")
	v.SetDefault("main.log.timezone", "Local")
	v.SetDefault("main.log.console.enabled", true)
	v.SetDefault("main.log.console.level", "info")
	v.SetDefault("main.log.file_output.enabled", false)
	v.SetDefault("main.log.file_output.path", "logs/mediscan.log")
	v.SetDefault("main.log.file_output.level", "info")

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.debug", false)
	v.SetDefault("webserver.host", "")
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.bodylimit", "12M")
	v.SetDefault("webserver.corsorigins", []string{})
	v.SetDefault("webserver.readtimeout", 30*time.Second)
	v.SetDefault("webserver.writetimeout", 60*time.Second)

	v.SetDefault("security.sessionsecret", "")
	v.SetDefault("security.sessionduration", 7*24*time.Hour)
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.cookiesecure", false)
	v.SetDefault("security.loginratelimit", 10.0)
	v.SetDefault("security.loginburst", 5)
	v.SetDefault("security.cleanupinterval", time.Hour)

	v.SetDefault("classifier.mode", "mock")
	v.SetDefault("classifier.brainurl", "http://localhost:8000/predict/brain")
	v.SetDefault("classifier.breasturl", "http://localhost:8000/predict/breast")
	v.SetDefault("classifier.apikey", "")
	v.SetDefault("classifier.timeout", 30*time.Second)
	v.SetDefault("classifier.mockseed", 0)

	v.SetDefault("resolver.strictunmatched", false)

	v.SetDefault("diagnosis.stagingttl", 15*time.Minute)

	v.SetDefault("imagestore.type", "inline")
	v.SetDefault("imagestore.maxbytes", 10*1024*1024)
	v.SetDefault("imagestore.local.path", "data/images")
	v.SetDefault("imagestore.s3.bucket", "")
	v.SetDefault("imagestore.s3.prefix", "scans")
	v.SetDefault("imagestore.s3.region", "")
	v.SetDefault("imagestore.s3.endpoint", "")
	v.SetDefault("imagestore.s3.pathstyle", false)

	v.SetDefault("events.mqtt.enabled", false)
	v.SetDefault("events.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("events.mqtt.clientid", "mediscan")
	v.SetDefault("events.mqtt.topic", "mediscan/diagnoses")
	v.SetDefault("events.mqtt.qos", 1)
	v.SetDefault("events.mqtt.retain", false)
	v.SetDefault("events.kafka.enabled", false)
	v.SetDefault("events.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka.topic", "mediscan-diagnoses")
	v.SetDefault("events.sqs.enabled", false)
	v.SetDefault("events.sqs.queuename", "mediscan-diagnoses")

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "mediscan.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "mediscan")
	v.SetDefault("output.mysql.password", "")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.mysql.database", "mediscan")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.samplerate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
