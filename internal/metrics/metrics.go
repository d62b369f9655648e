package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bhms"

var (
	// HTTPRequestsTotal 按路由和HTTP状态码统计请求数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ContractsCreated 成功创建的合同数
	ContractsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "created_total",
		Help:      "Total number of contracts created together with their initial payment.",
	})

	// ContractConflicts 合同冲突次数，reason: overlap, maintenance, version
	ContractConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "conflicts_total",
		Help:      "Total number of rejected contract writes by reason.",
	}, []string{"reason"})

	// PaymentsNormalized 写入前被规范化修改的付款数
	PaymentsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "normalized_total",
		Help:      "Total number of payments whose status or date was changed by normalization.",
	})

	// Notifications 通知发送结果，result: sent, failed
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "notifications_total",
		Help:      "Total number of notification attempts by driver and result.",
	}, []string{"driver", "result"})
)
