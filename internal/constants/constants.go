package constants

import "time"

const ServiceName = "dispatcher-service"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Reference data cache keys. Other services read the same keys, keep them stable.
const (
	CacheKeyPrefixOutbound           = "outbound_detail."
	CacheKeyPrefixInbound            = "inbound_detail."
	CacheKeyPrefixIntegrationDetails = "integration_details."
)

const (
	// TimestampHeader carries the CloudEvent production time when present.
	TimestampHeader = "ce-time"
)

const (
	WPSWatchUploadPath          = "/api/Upload"
	WPSWatchAPIKeyHeader        = "Wps-Api-Key"
	WPSWatchDefaultUploadDomain = "upload.wpswatch.org"
	WPSWatchSender              = "gundiservice.org"
	WPSWatchFilePart            = "Attachment1"
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	BrokerTypeKafka  = "kafka"
	BrokerTypeMemory = "memory"
)

const (
	StorageTypeMinIO  = "minio"
	StorageTypeMemory = "memory"
)

const (
	ReasonTooOld = "Message is too old or the retry time limit has been reached"
)
