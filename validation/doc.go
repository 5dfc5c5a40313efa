// Package validation checks configuration before a pipeline is built.
//
// Struct tags cover single fields; pipedata registers two extra tags,
// "cron" for schedule expressions and "rotation" for output path templates:
//
//	type Output struct {
//	    Path   string `mapstructure:"path" validate:"required"`
//	    Format string `mapstructure:"format" validate:"oneof=csv json"`
//	}
//	err := validation.Validate(cfg)
//
// Constraints between fields use the collecting Validator:
//
//	v := validation.New()
//	v.Rotation("output.path", cfg.Path, cfg.MaxFileLength)
//	err := v.Err()
//
// Both return *errors.AppError with code INVALID_CONFIG and the per-field
// messages in Details["fields"].
package validation
