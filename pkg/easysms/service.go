// pkg/easysms/service.go
package easysms

var GlobalService *Service

func InitService(apiKey, baseURL, sender string) error {
	service, err := NewService(apiKey, baseURL, sender)
	if err != nil {
		return err
	}
	GlobalService = service
	return nil
}
