package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Api resolves the country behind a visitor IP via the ipbase.com API,
// with resolved IPs cached in redis (geo info for an IP effectively
// never changes, so entries are cached without expiry)
type Api struct {
	mu             sync.Mutex
	ipBaseEndpoint string
	ipBaseAPIKey   string
	httpClient     *http.Client
	redisClient    *redis.Client
}

var devGeoIpInfo = IpInfo{
	Data: IpInfoData{
		IP: "127.0.0.1",
		Location: GeoLocation{
			City: City{
				Name: "Kuala Lumpur",
			},
			Country: Country{
				Alpha2: "MY",
				Name:   "Malaysia",
			},
		},
	},
}

func NewApi(
	ipBaseEndpoint, ipBaseAPIKey string,
	httpClient *http.Client,
	redisClient *redis.Client,
) *Api {
	return &Api{
		ipBaseEndpoint: ipBaseEndpoint,
		ipBaseAPIKey:   ipBaseAPIKey,
		httpClient:     httpClient,
		redisClient:    redisClient,
	}
}

// GetRequestGeoInfo resolves the geo info of the client behind r
func (gi *Api) GetRequestGeoInfo(ctx context.Context, r *http.Request) (*IpInfo, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geoIp.getRequestGeoInfo")
	defer span.End()

	userIp, err := pkg.ReadUserIP(r)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("get user ip: %s", err))
		return nil, fmt.Errorf("get user ip: %w", err)
	}
	span.SetAttributes(attribute.String("user.ip", userIp))

	// used for development
	if userIp == "localhost" {
		log.Debugf("request geo info: returning development localhost / Kuala Lumpur")
		return &devGeoIpInfo, nil
	}

	return gi.GetIPGeoInfo(ctx, userIp)
}

// GetIPGeoInfo resolves the geo info of the given IP. The ipbase free
// plan has a very low monthly call budget, so the redis cache is
// consulted first and a mutex collapses concurrent lookups.
func (gi *Api) GetIPGeoInfo(ctx context.Context, userIp string) (*IpInfo, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geoIp.getIpGeoInfo")
	defer span.End()

	gi.mu.Lock()
	defer gi.mu.Unlock()

	userIpKey := fmt.Sprintf("ip-info::%s", userIp)
	cmd := gi.redisClient.Get(ctx, userIpKey)
	if err := cmd.Err(); err != nil && err != redis.Nil {
		log.Errorf("failed to find ip info from redis for [%s]: %s", userIpKey, err)
	}

	geoIpResponse := &IpInfo{}
	if geoIpInfoBytes := cmd.Val(); geoIpInfoBytes != "" {
		span.SetAttributes(attribute.Bool("user.ip.from-cache", true))
		log.Tracef("found geo ip info for [%s] in redis cache", userIp)
		if err := json.Unmarshal([]byte(geoIpInfoBytes), geoIpResponse); err == nil {
			return geoIpResponse, nil
		} else {
			log.Errorf("failed to unmarshal cached ip info from redis for %s: %s", userIp, err)
			// continue, and try getting it from the ipbase API
		}
	} else {
		span.SetAttributes(attribute.Bool("user.ip.from-cache", false))
		log.Debugf("ip info value from redis not found for [%s]", userIp)
	}

	ipBaseUrl := fmt.Sprintf("%s/v2/info?apikey=%s&ip=%s", gi.ipBaseEndpoint, gi.ipBaseAPIKey, userIp)
	log.Debugf("will ask ipbase API for ip info: %s", userIp)

	req, err := http.NewRequest("GET", ipBaseUrl, nil)
	if err != nil {
		return nil, err
	}

	resp, err := gi.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error getting ipbase response: %s", err.Error())
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geo ip response bytes: %s", err)
	}

	if err := json.Unmarshal(respBytes, geoIpResponse); err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("unmarshal geo ip resp: %s", err))
		return nil, fmt.Errorf("unmarshal geo ip response bytes: %w", err)
	}

	if cmdSet := gi.redisClient.Set(ctx, userIpKey, respBytes, 0); cmdSet.Err() != nil {
		log.Errorf("failed to cache ip info in redis for %s: %s", userIp, cmdSet.Err())
	} else {
		log.Debugf("ip info cache set in redis for: %s", userIp)
	}

	return geoIpResponse, nil
}

type IpInfo struct {
	Data IpInfoData `json:"data"`
}

// CountryName is a convenience for enriching stored records, empty
// when the lookup came back without a country
func (i *IpInfo) CountryName() string {
	if i == nil {
		return ""
	}
	return i.Data.Location.Country.Name
}

type IpInfoData struct {
	IP       string      `json:"ip"`
	Type     string      `json:"type"`
	Location GeoLocation `json:"location"`
}

type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zip       string  `json:"zip"`
	Country   Country `json:"country"`
	City      City    `json:"city"`
	Region    Region  `json:"region"`
}

type Region struct {
	Alpha2 string `json:"alpha2"`
	Name   string `json:"name"`
}

type City struct {
	Name string `json:"name"`
}

type Country struct {
	Alpha2            string   `json:"alpha2"`
	Alpha3            string   `json:"alpha3"`
	Emoji             string   `json:"emoji"`
	Name              string   `json:"name"`
	Timezones         []string `json:"timezones"`
	IsInEuropeanUnion bool     `json:"is_in_european_union"`
}
