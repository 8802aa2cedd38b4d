// Package aws implements the AWS credential verifier for cloudctl.
package aws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yairfalse/cloudctl/internal/plugin"
	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/types"
)

// Check names
const (
	CheckCredentials = "credentials"
	CheckCloudTrail  = "cloudtrail"
	CheckRegions     = "regions"
)

// ErrWrongProvider is returned when asked to verify a non-AWS cloud.
var ErrWrongProvider = errors.New("not an AWS cloud")

// Config holds AWS verifier configuration.
type Config struct {
	// Region is the home region used for STS and CloudTrail calls
	Region string
	// Profile is the shared config profile used as the base identity when
	// a cloud assumes a role
	Profile string
}

// ClientFactory builds the AWS clients for one cloud
type ClientFactory func(ctx context.Context, cfg Config, c types.Cloud) (Clients, error)

// Plugin verifies AWS clouds.
type Plugin struct {
	cfg        Config
	newClients ClientFactory
	logger     *telemetry.Logger
	now        func() time.Time
}

// Option configures the plugin
type Option func(*Plugin)

// WithClientFactory replaces how AWS clients are built
func WithClientFactory(f ClientFactory) Option {
	return func(p *Plugin) { p.newClients = f }
}

// WithLogger sets the logger
func WithLogger(l *telemetry.Logger) Option {
	return func(p *Plugin) { p.logger = l.Component("aws-verifier") }
}

// New creates a new AWS verifier.
func New(cfg Config, opts ...Option) *Plugin {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	p := &Plugin{
		cfg:        cfg,
		newClients: NewClients,
		logger:     telemetry.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provider returns AWS.
func (p *Plugin) Provider() types.Provider {
	return types.ProviderAWS
}

// Verify checks that the stored credentials authenticate, that the named
// CloudTrail trail exists and that every selected region is enabled.
func (p *Plugin) Verify(ctx context.Context, c types.Cloud) (plugin.Report, error) {
	if c.Provider != types.ProviderAWS {
		return plugin.Report{}, fmt.Errorf("%w: %s", ErrWrongProvider, c.Provider)
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider", string(c.Provider)),
		attribute.String("cloud.id", c.ID),
		attribute.StringSlice("regions", c.RegionList),
	}
	ctx, span := telemetry.Tracer.Start(ctx, "cloud.verify")
	defer span.End()
	span.SetAttributes(attrs...)
	p.logger.LogSpanStart(ctx, "cloud.verify", attrs...)

	clients, err := p.newClients(ctx, p.cfg, c)
	if err != nil {
		span.RecordError(err)
		err = fmt.Errorf("build aws clients: %w", err)
		p.logger.LogSpanEnd(ctx, "cloud.verify", err)
		return plugin.Report{}, err
	}
	defer p.logger.LogSpanEnd(ctx, "cloud.verify", nil)

	report := plugin.Report{
		CloudID:   c.ID,
		Provider:  string(c.Provider),
		CheckedAt: p.now(),
	}

	account, check := p.checkIdentity(ctx, clients.STS)
	report.Account = account
	report.Checks = append(report.Checks, check)
	if !check.OK {
		// nothing else can succeed without a working identity
		p.log(ctx, c, report)
		return report, nil
	}

	if c.EventSource != nil {
		if trail := c.EventSource.Get("cloudTrailName"); trail != "" {
			report.Checks = append(report.Checks, p.checkTrail(ctx, clients.CloudTrail, trail))
		}
	}

	report.Checks = append(report.Checks, p.checkRegions(ctx, clients.EC2, c.RegionList))

	span.SetAttributes(attribute.Bool("verify.ok", report.OK()))
	p.log(ctx, c, report)
	return report, nil
}

func (p *Plugin) checkIdentity(ctx context.Context, client STSAPI) (string, plugin.Check) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", plugin.Check{Name: CheckCredentials, Detail: err.Error()}
	}
	return aws.ToString(out.Account), plugin.Check{
		Name:   CheckCredentials,
		OK:     true,
		Detail: aws.ToString(out.Arn),
	}
}

func (p *Plugin) checkTrail(ctx context.Context, client CloudTrailAPI, name string) plugin.Check {
	out, err := client.DescribeTrails(ctx, &cloudtrail.DescribeTrailsInput{
		TrailNameList:       []string{name},
		IncludeShadowTrails: aws.Bool(true),
	})
	if err != nil {
		return plugin.Check{Name: CheckCloudTrail, Detail: err.Error()}
	}

	for _, t := range out.TrailList {
		if aws.ToString(t.Name) == name || aws.ToString(t.TrailARN) == name {
			return plugin.Check{
				Name:   CheckCloudTrail,
				OK:     true,
				Detail: fmt.Sprintf("%s (home region %s)", name, aws.ToString(t.HomeRegion)),
			}
		}
	}
	return plugin.Check{Name: CheckCloudTrail, Detail: fmt.Sprintf("trail %q not found", name)}
}

func (p *Plugin) checkRegions(ctx context.Context, client EC2API, selected []string) plugin.Check {
	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return plugin.Check{Name: CheckRegions, Detail: err.Error()}
	}

	enabled := make(map[string]bool, len(out.Regions))
	for _, r := range out.Regions {
		enabled[aws.ToString(r.RegionName)] = true
	}

	var missing []string
	for _, r := range selected {
		if r == types.GlobalRegion {
			continue
		}
		if !enabled[r] {
			missing = append(missing, r)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return plugin.Check{
			Name:   CheckRegions,
			Detail: "not enabled for this account: " + strings.Join(missing, ", "),
		}
	}
	return plugin.Check{
		Name:   CheckRegions,
		OK:     true,
		Detail: fmt.Sprintf("%d regions enabled", len(enabled)),
	}
}

func (p *Plugin) log(ctx context.Context, c types.Cloud, r plugin.Report) {
	event := p.logger.WithContext(ctx).Info()
	if !r.OK() {
		event = p.logger.WithContext(ctx).Warn()
	}
	event.
		Str("cloud_id", c.ID).
		Str("cloud_name", c.Name).
		Str("account", r.Account).
		Int("checks", len(r.Checks)).
		Int("failed", len(r.Failed())).
		Msg("cloud verified")
}

// NewClients builds real AWS clients from the cloud's credentials.
// ACCESS_KEY clouds use their static keys, ASSUME_ROLE clouds start from
// the configured profile. When roleArn is set it is assumed on top of that
// base identity. A proxy URL is honoured.
func NewClients(ctx context.Context, cfg Config, c types.Cloud) (Clients, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	switch c.CredentialType {
	case "ACCESS_KEY":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				c.Credentials.Get("accessKeyId"),
				c.Credentials.Get("secretAccessKey"),
				"",
			),
		))
	case "ASSUME_ROLE":
		if cfg.Profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
		}
	default:
		return Clients{}, fmt.Errorf("credential type %q cannot be verified", c.CredentialType)
	}

	if c.ProxyURL != "" {
		proxy, err := url.Parse(c.ProxyURL)
		if err != nil {
			return Clients{}, fmt.Errorf("parse proxy url: %w", err)
		}
		opts = append(opts, config.WithHTTPClient(
			awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
				tr.Proxy = http.ProxyURL(proxy)
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return Clients{}, fmt.Errorf("load aws config: %w", err)
	}

	roleArn := strings.TrimSpace(c.Credentials.Get("roleArn"))
	switch {
	case roleArn != "":
		awsCfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), roleArn),
		)
	case c.CredentialType == "ASSUME_ROLE":
		return Clients{}, errors.New("roleArn is required to assume a role")
	}

	return Clients{
		STS:         sts.NewFromConfig(awsCfg),
		CloudTrail:  cloudtrail.NewFromConfig(awsCfg),
		EC2:         ec2.NewFromConfig(awsCfg),
		Credentials: awsCfg.Credentials,
	}, nil
}
