package gateway

// Info is the deployment descriptor returned by the server_info method and
// the mcp_info tool. Session timeout is reported in whole seconds.
type Info struct {
	Version        string `json:"version"`
	Account        string `json:"account"`
	AppName        string `json:"app_name"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	SessionTimeout int    `json:"session_timeout"`
	ProductURL     string `json:"product_url"`
	OrderURL       string `json:"order_url"`
	LogLevel       string `json:"log_level"`
}

// NewInfo derives the deployment descriptor from a Config.
func NewInfo(cfg Config) Info {
	return Info{
		Version:        cfg.Version,
		Account:        cfg.Account,
		AppName:        cfg.AppName,
		Host:           cfg.Host,
		Port:           cfg.Port,
		SessionTimeout: int(cfg.SessionTimeout.Seconds()),
		ProductURL:     cfg.InventoryURL,
		OrderURL:       cfg.OrderURL,
		LogLevel:       cfg.LogLevel,
	}
}
