// Copyright (c) Bas van Beek 2022.
// Copyright (c) Tetrate, Inc 2021.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

// tag keys describing the traced service
const (
	TagServiceName    = "service.name"
	TagServiceVersion = "service.version"
)

// Resource identifies the service emitting spans.
type Resource struct {
	ServiceName    string
	ServiceVersion string
}

// NewResource returns the Resource for the provided service identity.
func NewResource(serviceName, serviceVersion string) Resource {
	return Resource{ServiceName: serviceName, ServiceVersion: serviceVersion}
}

// Tags returns the resource attributes to add to every span.
func (r Resource) Tags() map[string]string {
	tags := map[string]string{TagServiceName: r.ServiceName}
	if r.ServiceVersion != "" {
		tags[TagServiceVersion] = r.ServiceVersion
	}
	return tags
}
