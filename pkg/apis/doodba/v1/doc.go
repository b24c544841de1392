// Package v1 contains API Schema definitions for the doodba v1 API group.
//
// # API Group: doodba.glo.systems/v1
//
// ## Doodba
//
// Doodba describes one Odoo installation built from a Doodba image: the image
// to run, how to reach its database and filestore, the hook commands that
// initialise and upgrade the database, and the set of instances (web, queue
// workers, cron) that serve it.
//
// Example:
//
//	apiVersion: doodba.glo.systems/v1
//	kind: Doodba
//	metadata:
//	  name: shop
//	  namespace: odoo
//	spec:
//	  image: ghcr.io/example/odoo
//	  tag: "16.0-20240101"
//	  database:
//	    database: shop
//	  filestore:
//	    size: 10Gi
//	  beforeCreate: click-odoo-initdb -m base
//	  beforeUpdate: click-odoo-update
//	  instances:
//	    - name: web
//	      enabled: true
//	      replicas: 2
//	      ports:
//	        - name: http
//	          containerPort: 8069
//
// The status subresource is written only by the operator.
//
// +kubebuilder:object:generate=true
// +groupName=doodba.glo.systems
package v1
