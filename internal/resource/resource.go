// Package resource describes the gateway's resource endpoints and the mock
// collections served for them when the backend cannot answer.
package resource

import (
	"strings"

	"medcare-gateway/internal/model"
)

// Names of the resources exposed by the gateway.
const (
	Users         = "users"
	Applications  = "applications"
	Notifications = "notifications"
	Files         = "files"
	Audit         = "audit"
)

// mockSuffix marks messages of locally synthesized responses.
const mockSuffix = " (mock data)"

// Resource configures one dispatcher: where it proxies to, which backend
// service owns it, and how a locally created record is filled in.
type Resource struct {
	Name     string
	Endpoint string
	Service  string

	ListMessage    string
	CreateMessage  string
	InvalidMessage string

	// Generated returns the fields set on every locally created record.
	// now is the creation timestamp already formatted for the envelope.
	Generated func(req *model.GatewayRequest, now string) map[string]any
}

// Definitions returns the five resources in route registration order.
func Definitions() []Resource {
	return []Resource{
		{
			Name:           Users,
			Endpoint:       "/api/users",
			Service:        "user-service",
			ListMessage:    "Users retrieved successfully",
			CreateMessage:  "User created successfully",
			InvalidMessage: "Invalid user data",
			Generated: func(_ *model.GatewayRequest, now string) map[string]any {
				return map[string]any{"status": "ACTIVE", "createdAt": now}
			},
		},
		{
			Name:           Applications,
			Endpoint:       "/api/applications",
			Service:        "application-service",
			ListMessage:    "Applications retrieved successfully",
			CreateMessage:  "Application submitted successfully",
			InvalidMessage: "Invalid application data",
			Generated: func(_ *model.GatewayRequest, now string) map[string]any {
				return map[string]any{"status": "PENDING", "submittedAt": now}
			},
		},
		{
			Name:           Notifications,
			Endpoint:       "/api/notifications",
			Service:        "notification-service",
			ListMessage:    "Notifications retrieved successfully",
			CreateMessage:  "Notification created successfully",
			InvalidMessage: "Invalid notification data",
			Generated: func(_ *model.GatewayRequest, now string) map[string]any {
				return map[string]any{"status": "PENDING", "sentAt": now, "readAt": nil}
			},
		},
		{
			Name:           Files,
			Endpoint:       "/api/files",
			Service:        "file-service",
			ListMessage:    "Files retrieved successfully",
			CreateMessage:  "File uploaded successfully",
			InvalidMessage: "Invalid file data",
			Generated: func(_ *model.GatewayRequest, now string) map[string]any {
				return map[string]any{"status": "PENDING_VERIFICATION", "uploadDate": now, "downloadCount": 0}
			},
		},
		{
			Name:           Audit,
			Endpoint:       "/api/audit",
			Service:        "audit-service",
			ListMessage:    "Audit logs retrieved successfully",
			CreateMessage:  "Audit log created successfully",
			InvalidMessage: "Invalid audit data",
			Generated: func(req *model.GatewayRequest, now string) map[string]any {
				return map[string]any{
					"timestamp": now,
					"ipAddress": clientIP(req),
					"userAgent": headerOr(req, "User-Agent", "unknown"),
				}
			},
		},
	}
}

// Services returns the backend service names in definition order.
func Services() []string {
	defs := Definitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Service)
	}
	return names
}

// MockListMessage is the GET message for a locally served collection.
func (r Resource) MockListMessage() string { return r.ListMessage + mockSuffix }

// MockCreateMessage is the POST message for a locally created record.
func (r Resource) MockCreateMessage() string { return r.CreateMessage + mockSuffix }

// NewRecord merges the request fields with the generated ones. Generated
// fields, including id, take precedence over client-supplied values.
func (r Resource) NewRecord(fields map[string]any, id int64, now string, req *model.GatewayRequest) map[string]any {
	generated := r.Generated(req, now)
	record := make(map[string]any, len(fields)+len(generated)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["id"] = id
	for k, v := range generated {
		record[k] = v
	}
	return record
}

// clientIP prefers the first X-Forwarded-For hop, then the peer address.
func clientIP(req *model.GatewayRequest) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if req.RemoteIP != "" {
		return req.RemoteIP
	}
	return "unknown"
}

func headerOr(req *model.GatewayRequest, key, fallback string) string {
	if v := req.Header.Get(key); v != "" {
		return v
	}
	return fallback
}
